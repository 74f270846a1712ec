package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"visadesk/internal/api"
	"visadesk/internal/edit"
	"visadesk/internal/listing"
	"visadesk/internal/record"
	"visadesk/internal/store"
	"visadesk/internal/update"

	tea "github.com/charmbracelet/bubbletea"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type patchCall struct {
	table record.Table
	id    int64
	field string
	value string
}

// fakeBackend serves groups from memory. Listing returns summaries (no
// notes), FetchRecord and FetchGroup return full records.
type fakeBackend struct {
	mu        sync.Mutex
	groups    []record.Group
	patches   []patchCall
	failField string
	nextID    int64
	deleted   []string
}

func rec(table record.Table, id int64, kv ...string) record.Record {
	r := record.New(table, id)
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], kv[i+1])
	}
	r.Set(record.DetailSentinel, r.Get(record.DetailSentinel))
	return r
}

func newFakeBackend() *fakeBackend {
	ada := record.Group{
		Traveler: rec(record.Travelers, 1,
			"title", "Ms", "first_name", "Ada", "last_name", "Lovelace", "name", "Ada Lovelace",
			"status", "Doc", "doc_date", "01/02/2026", "travel_country", "France",
			"planned_travel_date", "10/03/2027"),
		Dependents: []record.Record{
			rec(record.Dependents, 5, "traveler_id", "1", "first_name", "Byron", "last_name", "Lovelace", "name", "Byron Lovelace"),
		},
	}
	bob := record.Group{
		Traveler: rec(record.Travelers, 2,
			"first_name", "Bob", "last_name", "Stone", "name", "Bob Stone",
			"status", "Hold", "travel_country", "Spain", "planned_travel_date", "01/01/2027"),
	}
	return &fakeBackend{groups: []record.Group{ada, bob}, nextID: 100}
}

func summary(r record.Record) record.Record {
	out := record.New(r.Table, r.ID)
	for _, k := range r.FieldNames() {
		if k != record.DetailSentinel {
			out.Set(k, r.Get(k))
		}
	}
	return out
}

func (f *fakeBackend) ListTravelers(_ context.Context, page, limit int) (api.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []record.Group
	for _, g := range f.groups {
		s := record.Group{Traveler: summary(g.Traveler)}
		for _, d := range g.Dependents {
			s.Dependents = append(s.Dependents, summary(d))
		}
		all = append(all, s)
	}
	totalPages := (len(all) + limit - 1) / limit
	start := page * limit
	end := start + limit
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	return api.Page{Groups: all[start:end], Page: page, Total: len(all), TotalPages: totalPages, Paginated: true}, nil
}

func (f *fakeBackend) find(table record.Table, id int64) (*record.Record, bool) {
	for i := range f.groups {
		if r, ok := f.groups[i].Find(table, id); ok {
			return r, true
		}
	}
	return nil, false
}

func (f *fakeBackend) FetchRecord(_ context.Context, table record.Table, id int64) (record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.find(table, id)
	if !ok {
		return record.Record{}, errors.New("not found")
	}
	return r.Clone(), nil
}

func (f *fakeBackend) FetchGroup(_ context.Context, id int64) (record.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if g.ID() == id {
			return g.Clone(), nil
		}
	}
	return record.Group{}, errors.New("not found")
}

func (f *fakeBackend) PatchField(_ context.Context, table record.Table, id int64, field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patchCall{table: table, id: id, field: field, value: value})
	if field == f.failField {
		return errors.New("500 Internal Server Error")
	}
	if r, ok := f.find(table, id); ok {
		r.Set(field, value)
	}
	return nil
}

func (f *fakeBackend) CreateTraveler(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.groups = append(f.groups, record.Group{Traveler: rec(record.Travelers, f.nextID, "status", "Wait App")})
	return f.nextID, nil
}

func (f *fakeBackend) CreateDependent(_ context.Context, travelerID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	for i := range f.groups {
		if f.groups[i].ID() == travelerID {
			f.groups[i].Dependents = append(f.groups[i].Dependents, rec(record.Dependents, f.nextID))
		}
	}
	return f.nextID, nil
}

func (f *fakeBackend) Delete(_ context.Context, table record.Table, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, string(table))
	if table == record.Travelers {
		out := f.groups[:0]
		for _, g := range f.groups {
			if g.ID() != id {
				out = append(out, g)
			}
		}
		f.groups = out
	}
	return nil
}

func (f *fakeBackend) LookupPostcode(_ context.Context, code string) (api.Address, error) {
	return api.Address{Line1: "1 High Street", City: "London", Postcode: strings.ToUpper(code)}, nil
}

func (f *fakeBackend) patchesFor(field string) []patchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []patchCall
	for _, p := range f.patches {
		if p.field == field {
			out = append(out, p)
		}
	}
	return out
}

type testJournal struct {
	mu      sync.Mutex
	entries []store.JournalEntry
}

func (j *testJournal) Append(_ context.Context, e store.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func newTestModel(t *testing.T, be *fakeBackend) appModel {
	t.Helper()
	m := newAppModel(Options{
		Client: be,
		Store:  store.Store{Dir: t.TempDir()},
		Now:    func() time.Time { return testNow },
	})
	mm, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return mm.(appModel)
}

// run executes cmd and every command it leads to, feeding each message back
// through Update. Minibuffer ticks are not followed.
func run(t *testing.T, m appModel, cmd tea.Cmd) appModel {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 500 {
			t.Fatalf("commands did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, minibufferTickMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			mm, next := m.Update(msg)
			m = mm.(appModel)
			queue = append(queue, next)
		}
	}
	return m
}

func loaded(t *testing.T, be *fakeBackend) appModel {
	t.Helper()
	m := newTestModel(t, be)
	cmd := m.startLoad(loadFirst)
	return run(t, m, cmd)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "ctrl+u":
		return tea.KeyMsg{Type: tea.KeyCtrlU}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press sends keys and drops the resulting commands.
func press(m appModel, keys ...string) appModel {
	for _, k := range keys {
		mm, _ := m.Update(keyMsg(k))
		m = mm.(appModel)
	}
	return m
}

// pressRun sends one key and runs what it returns.
func pressRun(t *testing.T, m appModel, k string) appModel {
	t.Helper()
	mm, cmd := m.Update(keyMsg(k))
	return run(t, mm.(appModel), cmd)
}

func groupIDs(m appModel) []int64 {
	var out []int64
	for _, gv := range m.board.Groups() {
		out = append(out, gv.ID())
	}
	return out
}

func TestLoad_RendersGroupsInChunks(t *testing.T) {
	be := newFakeBackend()
	for i := int64(10); i < 15; i++ {
		be.groups = append(be.groups, record.Group{Traveler: rec(record.Travelers, i, "status", "Doc")})
	}
	m := newTestModel(t, be)
	m.chunkSize = 3

	cmd := m.startLoad(loadFirst)
	msg := cmd()
	mm, next := m.Update(msg)
	m = mm.(appModel)

	if got := m.board.Len(); got != 3 {
		t.Fatalf("expected first chunk of 3 groups, got %d", got)
	}
	if len(m.pendingChunks) != 2 {
		t.Fatalf("expected 2 pending chunks, got %d", len(m.pendingChunks))
	}
	m = run(t, m, next)
	if got := m.board.Len(); got != 7 {
		t.Fatalf("expected all 7 groups after chunks, got %d", got)
	}
	if m.loading {
		t.Fatalf("expected loading to be cleared")
	}
}

func TestLoad_StalePageIsDropped(t *testing.T) {
	be := newFakeBackend()
	m := newTestModel(t, be)

	first := m.startLoad(loadFirst)
	stale := first()
	second := m.startLoad(loadFirst)

	mm, _ := m.Update(stale)
	m = mm.(appModel)
	if m.board.Len() != 0 {
		t.Fatalf("expected stale page to be ignored, got %d groups", m.board.Len())
	}
	m = run(t, m, second)
	if m.board.Len() != 2 {
		t.Fatalf("expected current page to render, got %d groups", m.board.Len())
	}
}

func TestLoad_ErrorShowsInMinibuffer(t *testing.T) {
	m := newTestModel(t, newFakeBackend())
	m.loadSeq = 4
	mm, _ := m.Update(pageLoadedMsg{seq: 4, err: errors.New("connection refused")})
	m = mm.(appModel)

	if m.state.Err == nil {
		t.Fatalf("expected load error to be kept on the state")
	}
	if !strings.Contains(m.minibufferText, "connection refused") {
		t.Fatalf("expected minibuffer to show the error, got %q", m.minibufferText)
	}
	if !strings.Contains(m.View(), "Could not load travelers") {
		t.Fatalf("expected error view")
	}
}

func TestLoadMore_AppendsPage(t *testing.T) {
	be := newFakeBackend()
	m := newTestModel(t, be)
	m.loader.PageSize = 1

	cmd := m.startLoad(loadFirst)
	m = run(t, m, cmd)
	if m.board.Len() != 1 || !m.state.HasMore() {
		t.Fatalf("expected one page with more to load, got %d groups", m.board.Len())
	}
	m = pressRun(t, m, "m")
	if m.board.Len() != 2 {
		t.Fatalf("expected second page appended, got %d groups", m.board.Len())
	}
	if m.state.HasMore() {
		t.Fatalf("expected no more pages")
	}
}

func TestLoadMore_DuringChunkedRenderKeepsFirstPage(t *testing.T) {
	be := newFakeBackend()
	for i := int64(10); i < 14; i++ {
		be.groups = append(be.groups, record.Group{Traveler: rec(record.Travelers, i, "status", "Doc")})
	}
	m := newTestModel(t, be)
	m.loader.PageSize = 3
	m.chunkSize = 1

	first := m.startLoad(loadFirst)
	mm, chunks := m.Update(first())
	m = mm.(appModel)
	if m.board.Len() != 1 || len(m.pendingChunks) != 2 {
		t.Fatalf("expected 1 group rendered and 2 chunks pending, got %d and %d", m.board.Len(), len(m.pendingChunks))
	}

	more := m.startLoad(loadMore)
	m = run(t, m, more)
	m = run(t, m, chunks)
	if got := m.board.Len(); got != 6 {
		t.Fatalf("expected all 6 groups on the board, got %d (%v)", got, groupIDs(m))
	}
	if len(m.pendingChunks) != 0 {
		t.Fatalf("expected chunks drained, got %d pending", len(m.pendingChunks))
	}
}

func TestExpand_FetchesFullRecordLazily(t *testing.T) {
	m := loaded(t, newFakeBackend())

	_, v, _ := m.board.Find(record.Travelers, 1)
	if v.BodyLoaded {
		t.Fatalf("expected summary-only record before expanding")
	}
	m = pressRun(t, m, "enter")

	_, v, _ = m.board.Find(record.Travelers, 1)
	if !v.Expanded || !v.BodyLoaded || v.Loading {
		t.Fatalf("expected expanded loaded body, got expanded=%v loaded=%v loading=%v", v.Expanded, v.BodyLoaded, v.Loading)
	}
	if got := v.Fields["first_name"].Text; got != "Ada" {
		t.Fatalf("expected first name Ada, got %q", got)
	}
	if m.store.LoadListing().ExpandedRecordID != "travelers/1" {
		t.Fatalf("expected expanded record to be persisted")
	}
}

func TestExpand_StaleFetchIsDropped(t *testing.T) {
	m := loaded(t, newFakeBackend())
	if _, err := m.board.Expand(record.Travelers, 1); err != nil {
		t.Fatalf("expand: %v", err)
	}
	old := m.fetchRecord(record.Travelers, 1)
	_ = m.fetchRecord(record.Travelers, 1)

	mm, _ := m.Update(old())
	m = mm.(appModel)
	_, v, _ := m.board.Find(record.Travelers, 1)
	if v.BodyLoaded {
		t.Fatalf("expected superseded fetch to be ignored")
	}
}

func TestEdit_TabThenCommitPersistsDerivedName(t *testing.T) {
	be := newFakeBackend()
	j := &testJournal{}
	m := loaded(t, be)
	m.journal = j
	m = pressRun(t, m, "enter")

	// e opens title; tab leaves it unchanged and moves to first name.
	m = press(m, "e")
	if m.mode != modeEdit || m.editor.sess.Key.Field != "title" {
		t.Fatalf("expected title editor, got mode=%s", m.mode)
	}
	m = press(m, "tab")
	if m.editor == nil || m.editor.sess.Key.Field != "first_name" {
		t.Fatalf("expected first_name editor after tab")
	}
	if len(be.patchesFor("title")) != 0 {
		t.Fatalf("expected unchanged title not to be sent")
	}

	m = press(m, "ctrl+u", "Grace")
	m = pressRun(t, m, "enter")

	if m.mode != modeBrowse {
		t.Fatalf("expected browse mode after commit, got %s", m.mode)
	}
	if got := be.patchesFor("first_name"); len(got) != 1 || got[0].value != "Grace" {
		t.Fatalf("expected first_name patch, got %#v", got)
	}
	if got := be.patchesFor("name"); len(got) != 1 || got[0].value != "Grace Lovelace" {
		t.Fatalf("expected derived name persisted, got %#v", got)
	}
	_, v, _ := m.board.Find(record.Travelers, 1)
	if v.Header.Name != "Grace Lovelace" {
		t.Fatalf("expected header to show new name, got %q", v.Header.Name)
	}
	if g, _ := m.state.Find(1); g.Traveler.Get("first_name") != "Grace" {
		t.Fatalf("expected listing state to carry the edit")
	}
	if len(j.entries) != 2 {
		t.Fatalf("expected edit and persist journaled, got %d entries", len(j.entries))
	}
}

func TestEdit_FailureRollsBackAndShowsMinibuffer(t *testing.T) {
	be := newFakeBackend()
	be.failField = "status"
	m := loaded(t, be)
	m = pressRun(t, m, "enter")

	m.openField(edit.Key{Table: record.Travelers, ID: 1, Field: "status"})
	m = press(m, "hold")
	m = pressRun(t, m, "enter")

	if len(be.patchesFor("status")) != 1 {
		t.Fatalf("expected one status attempt")
	}
	_, v, _ := m.board.Find(record.Travelers, 1)
	if got := v.Fields["status"].Text; got != "Doc" {
		t.Fatalf("expected status rolled back to Doc, got %q", got)
	}
	if !strings.Contains(m.minibufferText, "Could not save status") {
		t.Fatalf("expected failure notice, got %q", m.minibufferText)
	}
}

func TestEdit_StatusClearsHiddenDocDate(t *testing.T) {
	be := newFakeBackend()
	m := loaded(t, be)
	m = pressRun(t, m, "enter")

	m.openField(edit.Key{Table: record.Travelers, ID: 1, Field: "status"})
	m = press(m, "wait")
	m = pressRun(t, m, "enter")

	if got := be.patchesFor("doc_date"); len(got) != 1 || got[0].value != "" {
		t.Fatalf("expected doc_date cleared, got %#v", got)
	}
	_, v, _ := m.board.Find(record.Travelers, 1)
	if v.DocDateVisible {
		t.Fatalf("expected doc date hidden for Wait App")
	}
}

func TestEdit_InvalidDateReverts(t *testing.T) {
	be := newFakeBackend()
	m := loaded(t, be)
	m = pressRun(t, m, "enter")

	m.openField(edit.Key{Table: record.Travelers, ID: 1, Field: "dob"})
	m = press(m, "31022030")
	if got := m.editor.input.Value(); got != "31/02/2030" {
		t.Fatalf("expected masked date, got %q", got)
	}
	m = pressRun(t, m, "enter")

	if len(be.patchesFor("dob")) != 0 {
		t.Fatalf("expected invalid date not to be sent")
	}
	if !strings.Contains(m.minibufferText, "Invalid date") {
		t.Fatalf("expected invalid date notice, got %q", m.minibufferText)
	}
	if m.ctrl.OpenCount() != 0 {
		t.Fatalf("expected editor closed")
	}
}

func TestEdit_EscCancels(t *testing.T) {
	be := newFakeBackend()
	m := loaded(t, be)
	m = pressRun(t, m, "enter")

	m.openField(edit.Key{Table: record.Travelers, ID: 1, Field: "first_name"})
	m = press(m, "ctrl+u", "Zed", "esc")

	if m.mode != modeBrowse || m.ctrl.OpenCount() != 0 {
		t.Fatalf("expected editor closed")
	}
	if len(be.patches) != 0 {
		t.Fatalf("expected nothing sent, got %#v", be.patches)
	}
}

func TestSearchAndFilter(t *testing.T) {
	m := loaded(t, newFakeBackend())

	m = press(m, "/", "b", "o", "b")
	if got := groupIDs(m); len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected only Bob, got %v", got)
	}
	m = press(m, "esc")
	if len(groupIDs(m)) != 2 {
		t.Fatalf("expected search cleared")
	}

	// Country is the first column in the picker.
	m = press(m, "f", "enter", "spa", "enter")
	if got := m.state.Filters[listing.ColCountry]; got != "Spain" {
		t.Fatalf("expected country filter Spain, got %q", got)
	}
	if got := groupIDs(m); len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected filter to leave Bob, got %v", got)
	}
	if m.store.LoadListing().Filters["country"] != "Spain" {
		t.Fatalf("expected filter persisted")
	}

	m = press(m, "F")
	if len(groupIDs(m)) != 2 {
		t.Fatalf("expected filters cleared")
	}
}

func TestSortByTravelDate(t *testing.T) {
	m := loaded(t, newFakeBackend())

	m = press(m, "s")
	if got := groupIDs(m); got[0] != 2 {
		t.Fatalf("expected earliest travel date first, got %v", got)
	}
	m = press(m, "s")
	if got := groupIDs(m); got[0] != 1 {
		t.Fatalf("expected descending order, got %v", got)
	}
	if st := m.store.LoadListing().Sort; st.Type != "travel_date" || st.Asc {
		t.Fatalf("expected descending travel sort persisted, got %#v", st)
	}
}

func TestCreateTraveler_ExpandsNewRecord(t *testing.T) {
	be := newFakeBackend()
	m := loaded(t, be)

	m = pressRun(t, m, "n")

	gv, v, ok := m.board.Find(record.Travelers, 101)
	if !ok {
		t.Fatalf("expected new traveler on the board")
	}
	if !v.Expanded || !v.BodyLoaded {
		t.Fatalf("expected new traveler expanded")
	}
	if r, _ := m.current(); r.id != gv.ID() {
		t.Fatalf("expected cursor on new traveler, got %d", r.id)
	}
	if m.state.ScrollToNew {
		t.Fatalf("expected scroll-to-new to be consumed")
	}
}

func TestDeleteTraveler_Confirms(t *testing.T) {
	be := newFakeBackend()
	m := loaded(t, be)

	m = press(m, "d", "n")
	if len(be.deleted) != 0 {
		t.Fatalf("expected no delete without confirmation")
	}
	m = press(m, "d")
	m = pressRun(t, m, "y")
	if len(be.deleted) != 1 {
		t.Fatalf("expected one delete")
	}
	if _, _, ok := m.board.Find(record.Travelers, 1); ok {
		t.Fatalf("expected traveler removed from the board")
	}
	if len(m.state.All) != 1 {
		t.Fatalf("expected traveler removed from state")
	}
}

func TestPostcodeAutofill(t *testing.T) {
	be := newFakeBackend()
	m := loaded(t, be)

	m = press(m, "P", "sw1a1aa")
	m = pressRun(t, m, "enter")

	if got := be.patchesFor("city"); len(got) != 1 || got[0].value != "London" {
		t.Fatalf("expected city patched, got %#v", got)
	}
	if got := be.patchesFor("zip"); len(got) != 1 || got[0].value != "SW1A1AA" {
		t.Fatalf("expected zip patched, got %#v", got)
	}
}

func TestUpdate_MinibufferTick_AutoClears(t *testing.T) {
	m := newTestModel(t, newFakeBackend())

	(&m).showMinibuffer("Hello")
	m.minibufferSetAt = testNow.Add(-minibufferAutoClearAfter - 100*time.Millisecond)

	mm, _ := m.Update(minibufferTickMsg{})
	m = mm.(appModel)

	if got := m.minibufferText; got != "" {
		t.Fatalf("expected minibuffer text to clear, got %q", got)
	}
}

func TestUpdate_MinibufferTick_KeepsRecentText(t *testing.T) {
	m := newTestModel(t, newFakeBackend())

	(&m).showMinibuffer("Hello")

	mm, _ := m.Update(minibufferTickMsg{})
	m = mm.(appModel)

	if m.minibufferText == "" {
		t.Fatalf("expected minibuffer text to remain set")
	}
}

func TestRestore_ReopensExpandedRecord(t *testing.T) {
	be := newFakeBackend()
	dir := t.TempDir()
	if err := (store.Store{Dir: dir}).SaveListing(store.ListingState{ExpandedRecordID: "dependents/5"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	m := newAppModel(Options{Client: be, Store: store.Store{Dir: dir}, Now: func() time.Time { return testNow }})
	cmd := m.startLoad(loadFirst)
	m = run(t, m, cmd)

	_, v, ok := m.board.Find(record.Dependents, 5)
	if !ok || !v.Expanded || !v.BodyLoaded {
		t.Fatalf("expected dependent 5 reopened with its body")
	}
}

func TestView_ShowsHeadersAndBody(t *testing.T) {
	m := loaded(t, newFakeBackend())
	m = pressRun(t, m, "enter")

	out := m.View()
	for _, want := range []string{"Ada Lovelace", "Bob Stone", "First name", "Doc"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected view to contain %q", want)
		}
	}
}

func TestJournalEntryForFailedWrite(t *testing.T) {
	res := update.Result{Key: edit.Key{Table: record.Travelers, ID: 1, Field: "status"}, Phase: update.Failed, Err: errors.New("boom")}
	if e := update.Entry(res); e.Outcome != store.OutcomeFailed || e.Error != "boom" {
		t.Fatalf("unexpected entry %#v", e)
	}
}

func TestDebugLogger_ClosesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	t.Setenv("VISADESK_DEBUG_LOG", path)

	m := newTestModel(t, newFakeBackend())
	m.showMinibuffer("hello")
	if err := m.closeLog(); err != nil {
		t.Fatalf("close debug log: %v", err)
	}
	if err := m.closeLog(); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("expected the log file to be closed already, got %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read debug log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("expected minibuffer text in debug log, got %q", data)
	}
}

func TestDebugLogger_DiscardsWithoutPath(t *testing.T) {
	t.Setenv("VISADESK_DEBUG_LOG", "")
	log, closeLog := debugLogger()
	log.Info("dropped")
	if err := closeLog(); err != nil {
		t.Fatalf("expected no-op close, got %v", err)
	}
}
