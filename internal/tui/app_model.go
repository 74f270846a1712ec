package tui

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"visadesk/internal/api"
	"visadesk/internal/edit"
	"visadesk/internal/fields"
	"visadesk/internal/listing"
	"visadesk/internal/record"
	"visadesk/internal/render"
	"visadesk/internal/store"
	"visadesk/internal/update"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	defaultChunkSize         = 50
	minibufferAutoClearAfter = 6 * time.Second
)

type appModel struct {
	api      Backend
	reg      *fields.Registry
	store    store.Store
	journal  update.Journal
	log      *slog.Logger
	closeLog func() error
	now      func() time.Time

	board  *render.Board
	state  *listing.State
	coord  *update.Coordinator
	ctrl   *edit.Controller
	loader listing.Loader

	chunkSize     int
	pendingChunks [][]record.Group
	chunkSeq      uint64
	renderNotes   bool

	width  int
	height int

	mode   mode
	cursor int
	// offset is the first body line shown; kept so the cursor stays visible.
	offset int

	editor *fieldEditor
	search textinput.Model
	prompt textinput.Model
	mrz    textarea.Model

	columns     list.Model
	filterCol   listing.Column
	filterQuery textinput.Model
	filterOpts  []string
	filterIdx   int

	loadSeq    uint64
	fetchSeq   map[string]uint64
	refetchSeq map[int64]uint64
	loading    bool

	minibufferText  string
	minibufferSetAt time.Time
}

// Options configures the console.
type Options struct {
	Client   Backend
	Registry *fields.Registry
	Store    store.Store
	Config   *store.Config
	// Journal receives every resolved write; nil disables journaling.
	Journal update.Journal
	// Now overrides the clock (tests).
	Now func() time.Time
}

func newAppModel(opts Options) appModel {
	reg := opts.Registry
	if reg == nil {
		reg = fields.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	r := render.NewRenderer(reg)
	m := appModel{
		api:        opts.Client,
		reg:        reg,
		store:      opts.Store,
		journal:    opts.Journal,
		now:        now,
		board:      render.NewBoard(r),
		state:      listing.NewState(),
		coord:      update.NewCoordinator(r, update.WithClock(now)),
		ctrl:       edit.NewController(reg),
		chunkSize:  defaultChunkSize,
		fetchSeq:   map[string]uint64{},
		refetchSeq: map[int64]uint64{},
	}
	m.log, m.closeLog = debugLogger()
	m.state.Reg = reg
	pageSize := api.DefaultPageSize
	if cfg := opts.Config; cfg != nil {
		if cfg.PageSize > 0 {
			pageSize = cfg.PageSize
		}
		if cfg.ChunkSize > 0 {
			m.chunkSize = cfg.ChunkSize
		}
		if cfg.TUI != nil && cfg.TUI.RenderNotes != nil {
			m.renderNotes = *cfg.TUI.RenderNotes
		}
	}
	m.loader = listing.Loader{Src: opts.Client, PageSize: pageSize}

	m.state.Restore(m.store.LoadListing())
	if m.state.ExpandedRecordID != "" {
		m.board.Restore(m.state.ExpandedRecordID)
	}

	m.search = textinput.New()
	m.search.Prompt = "/ "
	m.search.Placeholder = "search"
	m.search.SetValue(m.state.Search)

	m.prompt = textinput.New()
	m.prompt.Prompt = "Postcode: "

	m.mrz = textarea.New()
	m.mrz.Placeholder = "Paste the two MRZ lines"
	m.mrz.ShowLineNumbers = false
	m.mrz.SetHeight(3)
	m.mrz.CharLimit = 200

	m.filterQuery = textinput.New()
	m.filterQuery.Prompt = "> "

	m.columns = newList("Filter by", columnItems())
	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.startLoad(loadFirst), tickMinibuffer())
}

// debugLogger logs to VISADESK_DEBUG_LOG when set, and nowhere otherwise.
// The console owns the terminal, so it never logs to stderr. The returned
// func closes the log file.
func debugLogger() (*slog.Logger, func() error) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	noop := func() error { return nil }
	path := strings.TrimSpace(os.Getenv("VISADESK_DEBUG_LOG"))
	if path == "" {
		return discard, noop
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return discard, noop
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})), f.Close
}

func (m *appModel) showMinibuffer(text string) {
	m.minibufferText = text
	m.minibufferSetAt = m.now()
	m.log.Info("minibuffer", "text", text)
}

func tickMinibuffer() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return minibufferTickMsg{} })
}

// rows lists the header lines in display order.
func (m appModel) rows() []row {
	var out []row
	for _, gv := range m.board.Groups() {
		for _, v := range gv.Views() {
			out = append(out, row{table: v.Table, id: v.ID, group: gv.ID()})
		}
	}
	return out
}

func (m appModel) current() (row, bool) {
	rs := m.rows()
	if m.cursor < 0 || m.cursor >= len(rs) {
		return row{}, false
	}
	return rs[m.cursor], true
}

func (m *appModel) clampCursor() {
	n := len(m.rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *appModel) selectRow(table record.Table, id int64) {
	for i, r := range m.rows() {
		if r.table == table && r.id == id {
			m.cursor = i
			return
		}
	}
}

// syncOrder applies search, filters and sort to the board.
func (m *appModel) syncOrder() {
	cur, ok := m.current()
	m.board.SetOrder(m.state.VisibleIDs())
	if ok {
		m.selectRow(cur.table, cur.id)
	}
	m.clampCursor()
}

// persist saves the listing selections; failures are logged only.
func (m *appModel) persist() {
	m.state.ExpandedRecordID = m.board.Expanded()
	if err := m.store.SaveListing(m.state.Persisted()); err != nil {
		m.log.Warn("save ui state", "err", err)
	}
}

func newList(title string, items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)
	// Esc closes the picker instead of quitting.
	l.KeyMap.Quit.SetKeys("q")
	cursorUpKeys := append([]string{}, l.KeyMap.CursorUp.Keys()...)
	l.KeyMap.CursorUp.SetKeys(append(cursorUpKeys, "ctrl+p")...)
	cursorDownKeys := append([]string{}, l.KeyMap.CursorDown.Keys()...)
	l.KeyMap.CursorDown.SetKeys(append(cursorDownKeys, "ctrl+n")...)
	return l
}

type columnItem struct {
	col listing.Column
}

func (i columnItem) FilterValue() string { return string(i.col) }
func (i columnItem) Title() string       { return columnTitle(i.col) }
func (i columnItem) Description() string { return i.col.Field() }

func columnItems() []list.Item {
	items := make([]list.Item, 0, len(listing.Columns))
	for _, c := range listing.Columns {
		items = append(items, columnItem{col: c})
	}
	return items
}

func columnTitle(c listing.Column) string {
	s := strings.ReplaceAll(string(c), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
