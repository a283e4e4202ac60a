package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/five82/liststore/internal/logtail"
	"github.com/five82/liststore/internal/loop"
	"github.com/five82/liststore/internal/prefs"
	"github.com/five82/liststore/internal/state"
	"github.com/five82/liststore/internal/store"
)

// chromeLines counts the title, selection and footer lines around the list.
const chromeLines = 4

// maxDrainRounds bounds how often one message drains the loop; later jobs
// wake the program again through the queue.
const maxDrainRounds = 4

// Options configures the UI.
type Options struct {
	Context   context.Context
	Store     *store.Store
	Loop      *loop.Queue
	Progress  *state.Store
	Selection *Selection
	LogPath   string
	PollTick  time.Duration
	ThemeName string
	PrefsPath string
	Logger    *zap.Logger
}

// Model is the root application state for Bubble Tea. The Bubble Tea event
// loop is also the store's loop: store jobs posted from other goroutines are
// drained inside Update.
type Model struct {
	// Configuration
	ctx       context.Context
	store     *store.Store
	loop      *loop.Queue
	progress  *state.Store
	selection *Selection
	logPath   string
	prefsPath string
	pollTick  time.Duration
	log       *zap.Logger

	// UI state
	keys     keyMap
	help     help.Model
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool
	showLogs bool
	notice   string

	// Data state
	rows     *rowWindow
	snapshot state.Snapshot
	logs     []logtail.Line
	logErr   error
}

// New creates a new Bubble Tea model and attaches its row window to the
// store. Call it before the loop starts draining.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = time.Second
	}
	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	sel := opts.Selection
	if sel == nil {
		sel = &Selection{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	rows := newRowWindow(opts.Store)
	opts.Store.SetView(rows)

	return Model{
		ctx:       ctx,
		store:     opts.Store,
		loop:      opts.Loop,
		progress:  opts.Progress,
		selection: sel,
		logPath:   opts.LogPath,
		prefsPath: prefsPath,
		pollTick:  pollTick,
		log:       log,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		theme:     GetTheme(themeName),
		rows:      rows,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.pollTick),
		waitLoopCmd(m.ctx, m.loop),
	}
	if m.progress != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.progress))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		m.resize()
		return m, nil

	case loopMsg:
		m.drain()
		return m, waitLoopCmd(m.ctx, m.loop)

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		return m, nil

	case logLinesMsg:
		m.logs = msg.lines
		m.logErr = msg.err
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs(func(p *prefs.Prefs) { p.Theme = m.theme.Name })
		return m, nil

	case key.Matches(msg, m.keys.ToggleLogs):
		m.showLogs = !m.showLogs
		m.resize()
		if m.showLogs {
			return m, readLogsCmd(m.logPath)
		}
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.notice = ""
		if m.showLogs {
			m.showLogs = false
			m.resize()
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if h := m.rows.selected(); h.Valid() {
			m.store.NotifySelected(h)
		}

	case key.Matches(msg, m.keys.Update):
		if h := m.rows.selected(); h.Valid() {
			m.store.Update(h)
			m.notice = "refetching"
		}

	case key.Matches(msg, m.keys.Delete):
		if h := m.rows.selected(); h.Valid() {
			label, _ := describe(m.store.Descriptor(h), nil, true)
			m.store.Delete(h)
			m.notice = "deleted " + label
		}

	case key.Matches(msg, m.keys.CacheUp):
		m.setCacheMax(m.store.CacheMax() + 1)

	case key.Matches(msg, m.keys.CacheDown):
		m.setCacheMax(m.store.CacheMax() - 1)

	case key.Matches(msg, m.keys.Up):
		m.rows.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.rows.move(1)
	case key.Matches(msg, m.keys.PageUp):
		m.rows.move(-m.listHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.rows.move(m.listHeight())
	case key.Matches(msg, m.keys.Top):
		m.rows.home()
	case key.Matches(msg, m.keys.Bottom):
		m.rows.end()

	default:
		return m, nil
	}

	m.drain()
	return m, nil
}

// setCacheMax changes the store's bound. The bound never drops below the
// number of rows on screen, or visible rows would be evicted while shown.
func (m *Model) setCacheMax(n int) {
	if floor := m.listHeight(); n < floor {
		n = floor
	}
	m.store.SetCacheMax(n)
	n = m.store.CacheMax()
	m.notice = fmt.Sprintf("cache bound %d", n)
	m.savePrefs(func(p *prefs.Prefs) { p.CacheMax = n })
}

// savePrefs applies change to the stored preferences and writes them back.
func (m *Model) savePrefs(change func(*prefs.Prefs)) {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Load(m.prefsPath)
	change(&p)
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.log.Warn("save prefs failed", zap.String("path", m.prefsPath), zap.Error(err))
	}
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.progress != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.progress))
	}
	if m.showLogs {
		if cmd := readLogsCmd(m.logPath); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// drain runs pending store jobs and lets the row window catch up with any
// structural change they made.
func (m *Model) drain() {
	for i := 0; i < maxDrainRounds; i++ {
		ran := m.loop.Drain()
		m.rows.sync()
		if ran == 0 && m.loop.Len() == 0 {
			return
		}
	}
}

func (m *Model) resize() {
	height := m.listHeight()
	if m.store.CacheMax() < height {
		m.log.Info("cache bound raised to fit the window",
			zap.Int("from", m.store.CacheMax()),
			zap.Int("to", height))
		m.store.SetCacheMax(height)
	}
	m.rows.setHeight(height)
	m.drain()
}

func (m Model) listHeight() int {
	h := m.height - chromeLines - m.logPaneHeight()
	if h < 1 {
		h = 1
	}
	return h
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	styles := m.theme.Styles()
	var b strings.Builder

	title := styles.AccentText.Bold(true).Render("liststore")
	if m.snapshot.HasProgress {
		title += styles.MutedText.Render("  " + m.snapshot.Progress.Source)
	}
	b.WriteString(styles.Header.Render(title))
	b.WriteString("\n")

	b.WriteString(m.renderList())
	b.WriteString("\n")

	b.WriteString(m.renderSelection())
	b.WriteString("\n")

	if m.showLogs {
		b.WriteString(m.renderLogs())
		b.WriteString("\n")
	}

	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderList() string {
	height := m.listHeight()
	rows := m.rows.window()
	if len(rows) == 0 {
		msg := m.theme.Styles().MutedText.Render("  nothing listed yet")
		return msg + strings.Repeat("\n", height-1)
	}
	cursor := m.rows.selected()
	lines := make([]string, 0, height)
	for _, h := range rows {
		lines = append(lines, m.renderRow(h, h == cursor, m.width))
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// renderSelection shows the selected row, or the last action.
func (m Model) renderSelection() string {
	styles := m.theme.Styles()
	if m.notice != "" {
		return styles.WarningText.Render("  " + m.notice)
	}
	h, at := m.selection.Get()
	d := m.store.Descriptor(h)
	if d == nil {
		return styles.FaintText.Render("  enter selects a row")
	}
	payload, fetched := m.store.Payload(h)
	label, detail := describe(d, payload, fetched)
	line := fmt.Sprintf("  selected %s  %s  (%s)", label, detail, humanize.Time(at))
	return styles.AccentText.Render(truncate(line, m.width))
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// loopMsg reports that store jobs may be waiting.
type loopMsg struct{}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func waitLoopCmd(ctx context.Context, q *loop.Queue) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-q.Ready():
			return loopMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled. Cancellation is not an error.
func Run(opts Options) error {
	if opts.Store == nil || opts.Loop == nil {
		return errors.New("ui requires a store and its loop")
	}
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if err != nil && m.ctx.Err() != nil {
		return nil
	}
	return err
}
