package listing

import (
	"context"

	"visadesk/internal/api"
)

// Source pages through travelers. *api.Client implements it.
type Source interface {
	ListTravelers(ctx context.Context, page, limit int) (api.Page, error)
}

// Loader fetches pages. The Fetch methods do no state mutation so they can
// run off the UI loop; the Load methods fetch and apply in one step.
type Loader struct {
	Src      Source
	PageSize int
}

func (l Loader) limit() int {
	if l.PageSize > 0 {
		return l.PageSize
	}
	return api.DefaultPageSize
}

func (l Loader) FetchFirst(ctx context.Context) (api.Page, error) {
	return l.Src.ListTravelers(ctx, 0, l.limit())
}

func (l Loader) FetchPage(ctx context.Context, page int) (api.Page, error) {
	return l.Src.ListTravelers(ctx, page, l.limit())
}

// FetchAll is a single large-limit fetch.
func (l Loader) FetchAll(ctx context.Context) (api.Page, error) {
	p, err := l.Src.ListTravelers(ctx, 0, api.LoadAllLimit)
	if err != nil {
		return p, err
	}
	// Everything is here; no further pages.
	p.TotalPages = 1
	return p, nil
}

// LoadFirst replaces the state's records with the first page.
func (l Loader) LoadFirst(ctx context.Context, st *State) error {
	p, err := l.FetchFirst(ctx)
	if err != nil {
		st.Err = err
		return err
	}
	st.ApplyPage(p)
	return nil
}

// LoadMore appends the next page and reports how many groups it added.
func (l Loader) LoadMore(ctx context.Context, st *State) (int, error) {
	if !st.HasMore() {
		return 0, nil
	}
	p, err := l.FetchPage(ctx, st.Page+1)
	if err != nil {
		return 0, err
	}
	return len(st.AppendPage(p)), nil
}

// LoadAll replaces the state's records with everything.
func (l Loader) LoadAll(ctx context.Context, st *State) error {
	p, err := l.FetchAll(ctx)
	if err != nil {
		st.Err = err
		return err
	}
	st.ApplyPage(p)
	return nil
}
