package tui

import (
	"errors"
	"fmt"
	"strings"

	"visadesk/internal/edit"
	"visadesk/internal/fields"
	"visadesk/internal/listing"
	"visadesk/internal/record"
	"visadesk/internal/render"
	"visadesk/internal/update"

	tea "github.com/charmbracelet/bubbletea"
)

// anyOption clears the column filter in the value picker.
const anyOption = "(any)"

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.columns.SetSize(minInt(40, msg.Width), minInt(14, maxInt(4, msg.Height-4)))
		m.mrz.SetWidth(minInt(60, maxInt(20, msg.Width-4)))
		return m, nil

	case minibufferTickMsg:
		if m.minibufferText != "" && m.now().Sub(m.minibufferSetAt) >= minibufferAutoClearAfter {
			m.minibufferText = ""
		}
		return m, tickMinibuffer()

	case pageLoadedMsg:
		cmd := m.onPageLoaded(msg)
		return m, cmd

	case chunkMsg:
		cmd := m.onChunk(msg)
		return m, cmd

	case recordFetchedMsg:
		if msg.seq != m.fetchSeq[recKey(msg.table, msg.id)] {
			return m, nil
		}
		if msg.err != nil {
			m.board.LoadFailed(msg.table, msg.id)
			m.showMinibuffer(fmt.Sprintf("Could not load record: %v", msg.err))
			return m, nil
		}
		if err := m.board.Loaded(msg.rec); err != nil {
			// Gone from the board (deleted or reloaded away).
			m.log.Debug("fetched record dropped", "key", msg.rec.Key(), "err", err)
			return m, nil
		}
		m.state.ReplaceRecord(msg.rec)
		return m, nil

	case patchDoneMsg:
		cmd := m.onPatchDone(msg)
		return m, cmd

	case persistDoneMsg:
		res := update.PersistResult(msg.follow, msg.err)
		if msg.err != nil {
			m.showMinibuffer(fmt.Sprintf("Could not save %s: %v", msg.follow.Key.Field, msg.err))
		}
		cmd := m.journalResult(res)
		return m, cmd

	case groupFetchedMsg:
		cmd := m.onGroupFetched(msg)
		return m, cmd

	case createdMsg:
		if msg.err != nil {
			m.showMinibuffer(fmt.Sprintf("Could not create %s: %v", singular(msg.table), msg.err))
			return m, nil
		}
		m.state.ScrollToNew = true
		m.persist()
		cmd := m.refetchGroup(msg.travelerID, &row{table: msg.table, id: msg.id, group: msg.travelerID})
		return m, cmd

	case deletedMsg:
		if msg.err != nil {
			m.showMinibuffer(fmt.Sprintf("Could not delete %s: %v", singular(msg.table), msg.err))
			return m, nil
		}
		m.state.Remove(msg.table, msg.id)
		m.showMinibuffer("Deleted " + singular(msg.table))
		if msg.table == record.Travelers {
			m.board.Remove(msg.id)
			m.syncOrder()
			m.persist()
			return m, nil
		}
		// Dependents change the traveler's counts and progress.
		cmd := m.refetchGroup(msg.group, nil)
		return m, cmd

	case autofillMsg:
		cmd := m.onAutofill(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.onKey(msg)
	}
	return m, nil
}

func (m *appModel) onPageLoaded(msg pageLoadedMsg) tea.Cmd {
	if msg.seq != m.loadSeq {
		m.log.Debug("stale page dropped", "seq", msg.seq, "current", m.loadSeq)
		return nil
	}
	m.loading = false
	if msg.err != nil {
		if msg.kind == loadMore {
			m.showMinibuffer(fmt.Sprintf("Could not load more: %v", msg.err))
			return nil
		}
		m.state.Err = msg.err
		m.showMinibuffer(fmt.Sprintf("Could not load travelers: %v", msg.err))
		return nil
	}
	m.state.Err = nil

	if msg.kind == loadMore {
		added := m.state.AppendPage(msg.page)
		m.board.Append(added)
		m.syncOrder()
		m.showMinibuffer(fmt.Sprintf("Loaded %d more", len(added)))
		return nil
	}

	m.state.ApplyPage(msg.page)
	chunks := listing.Chunks(m.state.All, m.chunkSize, m.chunkSize)
	m.pendingChunks = nil
	if len(chunks) == 0 {
		m.board.Reset(nil)
		m.syncOrder()
		return nil
	}
	m.board.Reset(chunks[0])
	m.pendingChunks = chunks[1:]
	m.chunkSeq++
	m.syncOrder()
	cmds := []tea.Cmd{m.reopenExpanded()}
	if len(m.pendingChunks) > 0 {
		cmds = append(cmds, nextChunk(m.chunkSeq))
	}
	return tea.Batch(cmds...)
}

func (m *appModel) onChunk(msg chunkMsg) tea.Cmd {
	// Chunks carry their own sequence so a load-more started mid-render
	// does not strand the rest of the first page.
	if msg.seq != m.chunkSeq || len(m.pendingChunks) == 0 {
		return nil
	}
	chunk := m.pendingChunks[0]
	m.pendingChunks = m.pendingChunks[1:]
	m.board.Append(chunk)
	m.syncOrder()
	cmd := m.reopenExpanded()
	if len(m.pendingChunks) > 0 {
		return tea.Batch(cmd, nextChunk(msg.seq))
	}
	return cmd
}

// reopenExpanded brings back the remembered expanded record once it is on
// the board, fetching its body when only a summary is cached.
func (m *appModel) reopenExpanded() tea.Cmd {
	key := m.board.Expanded()
	if key == "" {
		return nil
	}
	for _, gv := range m.board.Groups() {
		for _, v := range gv.Views() {
			if recKey(v.Table, v.ID) != key || v.Expanded {
				continue
			}
			needsFetch, err := m.board.Expand(v.Table, v.ID)
			if err != nil || !needsFetch {
				return nil
			}
			return m.fetchRecord(v.Table, v.ID)
		}
	}
	return nil
}

func (m *appModel) onPatchDone(msg patchDoneMsg) tea.Cmd {
	gv, _, ok := m.board.Find(msg.table, msg.id)
	if !ok {
		m.log.Debug("patch result for record off the board", "key", msg.req.Key.String())
		return nil
	}
	res := m.coord.Resolve(gv, msg.req, msg.err)
	m.log.Debug("resolved", "key", res.Key.String(), "seq", res.Seq, "phase", res.Phase.String(), "stale", res.Stale)
	cmds := []tea.Cmd{m.journalResult(res)}
	if res.Notice != "" {
		m.showMinibuffer(res.Notice)
	}
	if res.Phase == update.Committed && !res.Stale {
		if _, rec, ok := gv.Lookup(msg.table, msg.id); ok {
			m.state.ReplaceRecord(rec.Clone())
		}
		cmds = append(cmds, m.follow(gv, res.Followups)...)
		m.syncOrder()
	}
	return tea.Batch(cmds...)
}

func (m *appModel) follow(gv *render.GroupView, fs []update.Followup) []tea.Cmd {
	var cmds []tea.Cmd
	for _, f := range fs {
		switch f.Kind {
		case update.FollowEdit:
			cm, err := m.coord.Derived(gv, f.Key, f.Value)
			if err != nil {
				m.log.Warn("derived edit", "key", f.Key.String(), "err", err)
				continue
			}
			cmds = append(cmds, m.commit(cm, true))
		case update.FollowPersist:
			cmds = append(cmds, m.persistField(f))
		case update.FollowRefetch:
			cmds = append(cmds, m.refetchGroup(gv.ID(), nil))
		}
	}
	return cmds
}

// commit applies an edit optimistically and sends it.
func (m *appModel) commit(cm edit.Commit, derived bool) tea.Cmd {
	gv, _, ok := m.board.Find(cm.Key.Table, cm.Key.ID)
	if !ok {
		m.showMinibuffer("Record is no longer loaded")
		return nil
	}
	var (
		req update.Request
		err error
	)
	if derived {
		req, err = m.coord.BeginDerived(gv, cm)
	} else {
		req, err = m.coord.Begin(gv, cm)
	}
	if err != nil {
		m.showMinibuffer(err.Error())
		return nil
	}
	m.log.Debug("patch", "key", req.Key.String(), "seq", req.Seq, "derived", derived)
	return m.patch(req)
}

func (m *appModel) onGroupFetched(msg groupFetchedMsg) tea.Cmd {
	if msg.seq != m.refetchSeq[msg.id] {
		return nil
	}
	if msg.err != nil {
		m.showMinibuffer(fmt.Sprintf("Could not reload record: %v", msg.err))
		return nil
	}
	m.board.Replace(msg.group)
	m.state.Replace(msg.group)
	m.syncOrder()
	if msg.expand == nil {
		return nil
	}
	m.state.ScrollToNew = false
	needsFetch, err := m.board.Expand(msg.expand.table, msg.expand.id)
	m.persist()
	if err != nil {
		m.showMinibuffer(err.Error())
		return nil
	}
	label := fmt.Sprintf("Created %s #%d", singular(msg.expand.table), msg.expand.id)
	if !m.isShown(msg.expand.table, msg.expand.id) {
		label += " (hidden by filters)"
	}
	m.selectRow(msg.expand.table, msg.expand.id)
	m.showMinibuffer(label)
	if needsFetch {
		return m.fetchRecord(msg.expand.table, msg.expand.id)
	}
	return nil
}

func (m appModel) isShown(table record.Table, id int64) bool {
	for _, r := range m.rows() {
		if r.table == table && r.id == id {
			return true
		}
	}
	return false
}

func (m *appModel) onAutofill(msg autofillMsg) tea.Cmd {
	if msg.err != nil {
		m.showMinibuffer(fmt.Sprintf("%s: %v", autofillLabel(msg.source), msg.err))
		return nil
	}
	var cmds []tea.Cmd
	n := 0
	for _, ch := range msg.changes {
		gv, _, ok := m.board.Find(msg.table, msg.id)
		if !ok {
			break
		}
		cm, err := m.coord.Derived(gv, edit.Key{Table: msg.table, ID: msg.id, Field: ch.Field}, ch.Value)
		if err != nil {
			m.log.Warn("autofill", "field", ch.Field, "err", err)
			continue
		}
		if cm.Value == cm.Original.Value() {
			continue
		}
		if cmd := m.commit(cm, false); cmd != nil {
			cmds = append(cmds, cmd)
			n++
		}
	}
	if n == 0 {
		m.showMinibuffer(autofillLabel(msg.source) + ": nothing to change")
		return nil
	}
	m.showMinibuffer(fmt.Sprintf("%s: updating %d fields", autofillLabel(msg.source), n))
	return tea.Batch(cmds...)
}

func autofillLabel(source string) string {
	if source == "passport" {
		return "Passport"
	}
	return "Postcode"
}

func singular(t record.Table) string {
	if t == record.Dependents {
		return "dependent"
	}
	return "traveler"
}

func (m appModel) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.cancelEditor()
		m.persist()
		return m, tea.Quit
	}
	switch m.mode {
	case modeEdit:
		return m.updateEdit(msg)
	case modeSearch:
		return m.updateSearch(msg)
	case modeFilterColumn:
		return m.updateFilterColumn(msg)
	case modeFilterValue:
		return m.updateFilterValue(msg)
	case modeConfirmDelete:
		return m.updateConfirmDelete(msg)
	case modePostcode:
		return m.updatePostcode(msg)
	case modePassport:
		return m.updatePassport(msg)
	}
	return m.updateBrowse(msg)
}

func (m appModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.persist()
		return m, tea.Quit
	case "j", "down", "ctrl+n":
		m.cursor++
		m.clampCursor()
	case "k", "up", "ctrl+p":
		m.cursor--
		m.clampCursor()
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = len(m.rows()) - 1
		m.clampCursor()
	case "enter", " ":
		r, ok := m.current()
		if !ok {
			return m, nil
		}
		needsFetch, err := m.board.Toggle(r.table, r.id)
		m.persist()
		if err != nil {
			m.showMinibuffer(err.Error())
			return m, nil
		}
		if needsFetch {
			cmd := m.fetchRecord(r.table, r.id)
			return m, cmd
		}
	case "tab", "e":
		cmd := m.editCurrent()
		return m, cmd
	case "/":
		m.mode = modeSearch
		m.search.SetValue(m.state.Search)
		m.search.CursorEnd()
		cmd := m.search.Focus()
		return m, cmd
	case "f":
		m.mode = modeFilterColumn
		m.columns.Select(0)
	case "F":
		m.state.ClearFilters()
		m.search.SetValue("")
		m.syncOrder()
		m.persist()
		m.showMinibuffer("Filters cleared")
	case "s":
		m.state.ToggleSort(listing.SortTravelDate)
		m.syncOrder()
		m.persist()
	case "S":
		m.state.ToggleSort(listing.SortDocDate)
		m.syncOrder()
		m.persist()
	case "m":
		if !m.state.HasMore() {
			m.showMinibuffer("Everything is loaded")
			return m, nil
		}
		cmd := m.startLoad(loadMore)
		return m, cmd
	case "M":
		cmd := m.startLoad(loadAll)
		return m, cmd
	case "r":
		cmd := m.startLoad(loadFirst)
		return m, cmd
	case "n":
		cmd := m.createTraveler()
		return m, cmd
	case "a":
		r, ok := m.current()
		if !ok {
			return m, nil
		}
		cmd := m.createDependent(r.group)
		return m, cmd
	case "d":
		if _, ok := m.current(); ok {
			m.mode = modeConfirmDelete
		}
	case "P":
		if _, ok := m.current(); ok {
			m.mode = modePostcode
			m.prompt.SetValue("")
			cmd := m.prompt.Focus()
			return m, cmd
		}
	case "p":
		if _, ok := m.current(); ok {
			m.mode = modePassport
			m.mrz.SetValue("")
			cmd := m.mrz.Focus()
			return m, cmd
		}
	}
	return m, nil
}

// editCurrent opens the first visible field of the selected record, or of
// the first expanded record in its group.
func (m *appModel) editCurrent() tea.Cmd {
	r, ok := m.current()
	if !ok {
		return nil
	}
	gv, ok := m.board.Group(r.group)
	if !ok {
		return nil
	}
	keys := gv.Traversal().Keys()
	if len(keys) == 0 {
		m.showMinibuffer("Expand a record to edit it")
		return nil
	}
	target := keys[0]
	for _, k := range keys {
		if k.Table == r.table && k.ID == r.id {
			target = k
			break
		}
	}
	m.openField(target)
	return nil
}

func (m *appModel) openField(k edit.Key) {
	_, v, ok := m.board.Find(k.Table, k.ID)
	if !ok || !v.BodyLoaded {
		return
	}
	sess, err := m.ctrl.Open(k, v.Fields[k.Field])
	if err != nil {
		m.showMinibuffer(err.Error())
		return
	}
	m.editor = newFieldEditor(sess, m.width)
	m.mode = modeEdit
	m.selectRow(k.Table, k.ID)
}

// finishEdit leaves edit mode and sends the commit, if any.
func (m *appModel) finishEdit(out edit.Outcome) tea.Cmd {
	m.editor = nil
	m.mode = modeBrowse
	if out.Err != nil {
		if errors.Is(out.Err, fields.ErrInvalidDate) {
			m.showMinibuffer("Invalid date, use DD/MM/YYYY")
		} else {
			m.showMinibuffer(out.Err.Error())
		}
	}
	// Reverting needs no work: the body display is untouched while editing.
	if out.Path != edit.Committing {
		return nil
	}
	return m.commit(out.Commit, false)
}

func (m *appModel) cancelEditor() {
	if m.editor == nil {
		return
	}
	_, _ = m.editor.sess.Cancel()
	m.editor = nil
	m.mode = modeBrowse
}

func (m appModel) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.editor
	if e == nil {
		m.mode = modeBrowse
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.cancelEditor()
		return m, nil
	case "ctrl+s":
		out, err := e.sess.Close(e.value())
		if err != nil {
			m.cancelEditor()
			return m, nil
		}
		cmd := m.finishEdit(out)
		return m, cmd
	case "enter":
		if e.multiline() {
			break
		}
		out, err := e.sess.Close(e.value())
		if err != nil {
			m.cancelEditor()
			return m, nil
		}
		cmd := m.finishEdit(out)
		return m, cmd
	case "tab", "shift+tab":
		if e.multiline() {
			break
		}
		gv, _, ok := m.board.Find(e.sess.Key.Table, e.sess.Key.ID)
		if !ok {
			m.cancelEditor()
			return m, nil
		}
		out, next, more, err := e.sess.Tab(e.value(), gv.Traversal(), msg.String() == "shift+tab")
		if err != nil {
			break
		}
		cmd := m.finishEdit(out)
		if more {
			m.openField(next)
		}
		return m, cmd
	}
	return m, e.update(msg)
}

func (m appModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.mode = modeBrowse
		m.search.Blur()
		m.persist()
		return m, nil
	case "esc":
		m.mode = modeBrowse
		m.search.Blur()
		m.search.SetValue("")
		m.state.Search = ""
		m.syncOrder()
		m.persist()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if q := strings.TrimSpace(m.search.Value()); q != m.state.Search {
		m.state.Search = q
		m.syncOrder()
	}
	return m, cmd
}

func (m appModel) updateFilterColumn(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.mode = modeBrowse
		return m, nil
	case "enter":
		it, ok := m.columns.SelectedItem().(columnItem)
		if !ok {
			m.mode = modeBrowse
			return m, nil
		}
		m.filterCol = it.col
		m.filterOpts = listing.Options(m.state.All, it.col, m.reg)
		m.filterQuery.SetValue("")
		m.filterIdx = 0
		if cur, ok := m.state.Filters[it.col]; ok {
			for i, o := range m.filterChoices() {
				if o == cur {
					m.filterIdx = i
				}
			}
		}
		m.mode = modeFilterValue
		cmd := m.filterQuery.Focus()
		return m, cmd
	}
	var cmd tea.Cmd
	m.columns, cmd = m.columns.Update(msg)
	return m, cmd
}

// filterChoices is the value picker list: the clear option, then the
// column's values matching the query.
func (m appModel) filterChoices() []string {
	return append([]string{anyOption}, edit.FilterOptions(m.filterOpts, m.filterQuery.Value())...)
}

func (m appModel) updateFilterValue(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	choices := m.filterChoices()
	switch msg.String() {
	case "esc":
		m.filterQuery.Blur()
		m.mode = modeFilterColumn
		return m, nil
	case "up", "ctrl+p":
		if m.filterIdx > 0 {
			m.filterIdx--
		}
		return m, nil
	case "down", "ctrl+n":
		if m.filterIdx < len(choices)-1 {
			m.filterIdx++
		}
		return m, nil
	case "enter":
		value := ""
		if m.filterIdx > 0 && m.filterIdx < len(choices) {
			value = choices[m.filterIdx]
		}
		m.state.SetFilter(m.filterCol, value)
		m.filterQuery.Blur()
		m.mode = modeBrowse
		m.syncOrder()
		m.persist()
		if value == "" {
			m.showMinibuffer("Cleared " + columnTitle(m.filterCol) + " filter")
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.filterQuery, cmd = m.filterQuery.Update(msg)
	m.filterIdx = 0
	if len(m.filterChoices()) > 1 {
		m.filterIdx = 1
	}
	return m, cmd
}

func (m appModel) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	if msg.String() != "y" && msg.String() != "Y" {
		return m, nil
	}
	r, ok := m.current()
	if !ok {
		return m, nil
	}
	cmd := m.deleteRecord(r)
	return m, cmd
}

func (m appModel) updatePostcode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.prompt.Blur()
		m.mode = modeBrowse
		return m, nil
	case "enter":
		m.prompt.Blur()
		m.mode = modeBrowse
		code := strings.TrimSpace(m.prompt.Value())
		r, ok := m.current()
		if code == "" || !ok {
			return m, nil
		}
		m.showMinibuffer("Looking up " + strings.ToUpper(code) + "…")
		cmd := m.lookupPostcode(r, code)
		return m, cmd
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m appModel) updatePassport(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mrz.Blur()
		m.mode = modeBrowse
		return m, nil
	case "ctrl+s":
		m.mrz.Blur()
		m.mode = modeBrowse
		r, ok := m.current()
		if !ok || strings.TrimSpace(m.mrz.Value()) == "" {
			return m, nil
		}
		cmd := m.readPassport(r, m.mrz.Value())
		return m, cmd
	}
	var cmd tea.Cmd
	m.mrz, cmd = m.mrz.Update(msg)
	return m, cmd
}
