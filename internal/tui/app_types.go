package tui

import (
	"context"

	"visadesk/internal/api"
	"visadesk/internal/autofill"
	"visadesk/internal/listing"
	"visadesk/internal/record"
	"visadesk/internal/update"
)

// Backend is what the console needs from the records API. *api.Client
// implements it.
type Backend interface {
	listing.Source
	update.Patcher
	update.GroupFetcher
	autofill.PostcodeLookup
	FetchRecord(ctx context.Context, table record.Table, id int64) (record.Record, error)
	CreateTraveler(ctx context.Context) (int64, error)
	CreateDependent(ctx context.Context, travelerID int64) (int64, error)
	Delete(ctx context.Context, table record.Table, id int64) error
}

type mode int

const (
	modeBrowse mode = iota
	modeEdit
	modeSearch
	modeFilterColumn
	modeFilterValue
	modeConfirmDelete
	modePostcode
	modePassport
)

func (m mode) String() string {
	switch m {
	case modeEdit:
		return "edit"
	case modeSearch:
		return "search"
	case modeFilterColumn, modeFilterValue:
		return "filter"
	case modeConfirmDelete:
		return "confirm-delete"
	case modePostcode:
		return "postcode"
	case modePassport:
		return "passport"
	default:
		return "browse"
	}
}

type loadKind int

const (
	loadFirst loadKind = iota
	loadMore
	loadAll
)

// row is one visible header line: a traveler or one of its dependents.
type row struct {
	table record.Table
	id    int64
	group int64
}

// Messages. Every async result carries the sequence number it was issued
// with; results for an older sequence are dropped.

type pageLoadedMsg struct {
	seq  uint64
	kind loadKind
	page api.Page
	err  error
}

// chunkMsg renders the next deferred batch of a large load.
type chunkMsg struct {
	seq uint64
}

type recordFetchedMsg struct {
	seq   uint64
	table record.Table
	id    int64
	rec   record.Record
	err   error
}

type patchDoneMsg struct {
	req   update.Request
	err   error
	table record.Table
	id    int64
}

type persistDoneMsg struct {
	follow update.Followup
	err    error
}

type groupFetchedMsg struct {
	seq   uint64
	id    int64
	group record.Group
	err   error
	// expand is a record to open once the group is on the board (new
	// dependent or traveler).
	expand *row
}

type createdMsg struct {
	table      record.Table
	id         int64
	travelerID int64
	err        error
}

type deletedMsg struct {
	table record.Table
	id    int64
	group int64
	err   error
}

type autofillMsg struct {
	table   record.Table
	id      int64
	source  string
	changes []update.Change
	err     error
}

type minibufferTickMsg struct{}
