package tui

import (
	"context"
	"strconv"
	"time"

	"visadesk/internal/autofill"
	"visadesk/internal/record"
	"visadesk/internal/update"

	tea "github.com/charmbracelet/bubbletea"
)

// Backend calls run as commands and come back as messages; no model state is
// touched off the Update loop.

func (m *appModel) startLoad(kind loadKind) tea.Cmd {
	m.loadSeq++
	m.loading = true
	seq := m.loadSeq
	loader := m.loader
	page := m.state.Page + 1
	return func() tea.Msg {
		ctx := context.Background()
		var (
			p   = pageLoadedMsg{seq: seq, kind: kind}
			err error
		)
		switch kind {
		case loadMore:
			p.page, err = loader.FetchPage(ctx, page)
		case loadAll:
			p.page, err = loader.FetchAll(ctx)
		default:
			p.page, err = loader.FetchFirst(ctx)
		}
		p.err = err
		return p
	}
}

func nextChunk(seq uint64) tea.Cmd {
	return func() tea.Msg { return chunkMsg{seq: seq} }
}

func (m *appModel) fetchRecord(table record.Table, id int64) tea.Cmd {
	k := recKey(table, id)
	m.fetchSeq[k]++
	seq := m.fetchSeq[k]
	api := m.api
	return func() tea.Msg {
		rec, err := api.FetchRecord(context.Background(), table, id)
		return recordFetchedMsg{seq: seq, table: table, id: id, rec: rec, err: err}
	}
}

func recKey(table record.Table, id int64) string {
	return string(table) + "/" + strconv.FormatInt(id, 10)
}

func (m *appModel) refetchGroup(id int64, expand *row) tea.Cmd {
	m.refetchSeq[id]++
	seq := m.refetchSeq[id]
	api := m.api
	return func() tea.Msg {
		g, err := api.FetchGroup(context.Background(), id)
		return groupFetchedMsg{seq: seq, id: id, group: g, err: err, expand: expand}
	}
}

func (m appModel) patch(req update.Request) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		err := api.PatchField(context.Background(), req.Key.Table, req.Key.ID, req.Key.Field, req.Wire)
		return patchDoneMsg{req: req, err: err, table: req.Key.Table, id: req.Key.ID}
	}
}

func (m appModel) persistField(f update.Followup) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		err := api.PatchField(context.Background(), f.Key.Table, f.Key.ID, f.Key.Field, f.Value)
		return persistDoneMsg{follow: f, err: err}
	}
}

// journalResult appends to the edit journal off the Update loop.
func (m appModel) journalResult(res update.Result) tea.Cmd {
	if m.journal == nil {
		return nil
	}
	j, log := m.journal, m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := j.Append(ctx, update.Entry(res)); err != nil {
			log.Warn("journal append failed", "err", err)
		}
		return nil
	}
}

func (m appModel) createTraveler() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		id, err := api.CreateTraveler(context.Background())
		return createdMsg{table: record.Travelers, id: id, travelerID: id, err: err}
	}
}

func (m appModel) createDependent(travelerID int64) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		id, err := api.CreateDependent(context.Background(), travelerID)
		return createdMsg{table: record.Dependents, id: id, travelerID: travelerID, err: err}
	}
}

func (m appModel) deleteRecord(r row) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		err := api.Delete(context.Background(), r.table, r.id)
		return deletedMsg{table: r.table, id: r.id, group: r.group, err: err}
	}
}

func (m appModel) lookupPostcode(r row, code string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		changes, err := autofill.Postcode(context.Background(), api, code)
		return autofillMsg{table: r.table, id: r.id, source: "postcode", changes: changes, err: err}
	}
}

func (m appModel) readPassport(r row, text string) tea.Cmd {
	now := m.now()
	return func() tea.Msg {
		p, err := autofill.ParseMRZ(text, now)
		return autofillMsg{table: r.table, id: r.id, source: "passport", changes: p.Changes(), err: err}
	}
}
