package ui

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shutter/internal/config"
	"github.com/five82/shutter/internal/download"
	"github.com/five82/shutter/internal/prefs"
	"github.com/five82/shutter/internal/session"
	"github.com/five82/shutter/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewCamera View = iota
	ViewLogs
)

// Controller is the capture workflow the UI drives.
type Controller interface {
	Store() *state.Store
	OpenCamera(ctx context.Context) error
	CloseCamera()
	ToggleFrontCamera(ctx context.Context) error
	CaptureImage(ctx context.Context) (session.Result, error)
	Download(ctx context.Context) (string, error)
	SetFileName(name string)
	SetFileType(ft download.FileType)
	PreviewFrame(ctx context.Context) (image.Image, error)
}

var _ Controller = (*session.Controller)(nil)

// Options configures the UI.
type Options struct {
	Context    context.Context
	Controller Controller
	Config     *config.Config
	Prefs      prefs.Prefs
	PrefsPath  string
	Logger     *slog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx         context.Context
	ctrl        Controller
	store       *state.Store
	config      *config.Config
	prefs       prefs.Prefs
	prefsPath   string
	log         *slog.Logger
	previewTick time.Duration

	// UI state
	theme       Theme
	keys        keyMap
	currentView View
	width       int
	height      int
	ready       bool

	// Data state
	snapshot state.Session

	// Camera pane
	busy       string // label of the camera operation in flight
	previewing bool
	preview    string
	previewErr error

	// Captured pane
	captured   string
	capturedID string
	notice     string

	// File name field
	nameInput   textinput.Model
	editingName bool

	// Log state
	logViewport viewport.Model
	logState    logState

	// Help overlay
	showHelp bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	previewTick := DefaultPreviewInterval
	if opts.Config != nil {
		previewTick = opts.Config.PreviewInterval()
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var store *state.Store
	var snapshot state.Session
	if opts.Controller != nil {
		store = opts.Controller.Store()
		snapshot = store.Snapshot()
	}

	ti := textinput.New()
	ti.Placeholder = "File name to download"
	ti.CharLimit = 128
	ti.Prompt = ""
	ti.SetValue(snapshot.FileName)

	m := Model{
		ctx:         ctx,
		ctrl:        opts.Controller,
		store:       store,
		config:      opts.Config,
		prefs:       opts.Prefs,
		prefsPath:   prefsPath,
		log:         logger.With("component", "ui"),
		previewTick: previewTick,
		theme:       GetTheme(opts.Prefs.Theme),
		keys:        DefaultKeyMap(),
		currentView: ViewCamera,
		snapshot:    snapshot,
		nameInput:   ti,
	}
	m.initLogState()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.previewTick)}
	if m.store != nil {
		cmds = append(cmds, waitForChange(m.ctx, m.store))
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
		if !m.ready {
			m.initLogViewport()
		}
		m.ready = true
		m.updateLogViewport()
		return m, m.renderCapturedCmd()

	case snapshotMsg:
		return m.handleSnapshot(state.Session(msg))

	case tickMsg:
		return m.handleTick()

	case previewMsg:
		m.previewing = false
		if !m.snapshot.CameraOpen {
			m.preview = ""
			m.previewErr = nil
			return m, nil
		}
		m.previewErr = msg.err
		if msg.err == nil {
			m.preview = msg.view
		}
		return m, nil

	case opDoneMsg:
		m.busy = ""
		m.log.Debug("camera operation finished", "op", msg.op, "error", msg.err)
		if msg.op == "switch" && m.store != nil {
			m.prefs = m.prefs.WithFront(m.store.Snapshot().FrontCamera)
			m.savePrefs()
		}
		return m, nil

	case capturedMsg:
		m.busy = ""
		if msg.err == nil {
			m.notice = "Captured " + msg.res.SizeLabel + " from " + msg.res.Device
		}
		return m, nil

	case capturedViewMsg:
		if msg.id == m.snapshot.CaptureID {
			m.captured = msg.view
			m.capturedID = msg.id
		}
		return m, nil

	case savedMsg:
		m.busy = ""
		if msg.err == nil {
			m.notice = "Saved " + msg.path
		}
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			m.notice = "Copy failed: " + msg.err.Error()
		} else {
			m.notice = "Copied data URL to clipboard"
		}
		return m, nil

	case logBatchMsg:
		m.handleLogBatch(msg)
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

	if m.editingName {
		return m.handleNameInput(msg)
	}

	if m.currentView == ViewLogs && m.logState.searchActive {
		return m.handleLogSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.ViewLogs):
		if m.currentView == ViewLogs {
			m.currentView = ViewCamera
			return m, nil
		}
		m.currentView = ViewLogs
		return m, m.refreshLogs()

	case key.Matches(msg, m.keys.Escape):
		if m.currentView == ViewLogs && m.logState.query != "" {
			m.clearLogSearch()
			return m, nil
		}
		m.currentView = ViewCamera
		return m, nil
	}

	switch m.currentView {
	case ViewLogs:
		return m.handleLogsKey(msg)
	default:
		return m.handleCameraKey(msg)
	}
}

// handleCameraKey processes keyboard input for the camera view.
func (m Model) handleCameraKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ctrl == nil {
		return m, nil
	}
	open := m.snapshot.CameraOpen
	idle := m.busy == ""
	captured := m.snapshot.HasCapture()

	switch {
	case key.Matches(msg, m.keys.Open):
		if open || !idle {
			return m, nil
		}
		m.busy = "Opening camera"
		return m, m.cameraCmd("open", m.ctrl.OpenCamera)

	case key.Matches(msg, m.keys.Close):
		if !open || !idle {
			return m, nil
		}
		m.busy = "Closing camera"
		ctrl := m.ctrl
		return m, m.cameraCmd("close", func(context.Context) error {
			ctrl.CloseCamera()
			return nil
		})

	case key.Matches(msg, m.keys.Capture):
		if !open || !idle {
			return m, nil
		}
		m.busy = "Capturing"
		return m, m.captureCmd()

	case key.Matches(msg, m.keys.Front):
		if !idle {
			return m, nil
		}
		// Cleared by opDoneMsg; the saved preference is read back from the store there.
		m.busy = "Switching camera"
		return m, m.cameraCmd("switch", m.ctrl.ToggleFrontCamera)

	case key.Matches(msg, m.keys.EditName):
		if !captured {
			return m, nil
		}
		m.editingName = true
		m.nameInput.SetValue(m.snapshot.FileName)
		m.nameInput.CursorEnd()
		return m, m.nameInput.Focus()

	case key.Matches(msg, m.keys.CycleType):
		if !captured {
			return m, nil
		}
		ft := m.snapshot.FileType.Next()
		m.snapshot.FileType = ft
		m.ctrl.SetFileType(ft)
		m.prefs.FileType = string(ft)
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Download):
		if !captured || !idle {
			return m, nil
		}
		m.busy = "Saving"
		return m, m.downloadCmd()

	case key.Matches(msg, m.keys.CopyURL):
		if !captured {
			return m, nil
		}
		return m, copyCmd(m.snapshot.CapturedImage)
	}

	return m, nil
}

// handleNameInput handles keyboard input while the file name is edited.
func (m Model) handleNameInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		name := m.nameInput.Value()
		m.ctrl.SetFileName(name)
		m.snapshot.FileName = name
		m.prefs.FileName = name
		m.savePrefs()
		m.editingName = false
		m.nameInput.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.nameInput.SetValue(m.snapshot.FileName)
		m.editingName = false
		m.nameInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

// handleSnapshot applies a store change and waits for the next one.
func (m Model) handleSnapshot(snap state.Session) (tea.Model, tea.Cmd) {
	m.snapshot = snap
	cmds := []tea.Cmd{waitForChange(m.ctx, m.store)}

	if !snap.CameraOpen {
		m.preview = ""
		m.previewErr = nil
	}
	if !m.editingName {
		m.nameInput.SetValue(snap.FileName)
	}
	switch {
	case !snap.HasCapture():
		m.captured = ""
		m.capturedID = ""
	case snap.CaptureID != m.capturedID:
		cmds = append(cmds, m.renderCapturedCmd())
	}
	return m, tea.Batch(cmds...)
}

// handleTick processes the preview tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.previewTick)}

	if m.currentView == ViewCamera && m.snapshot.CameraOpen && !m.previewing && m.ctrl != nil && m.ready {
		m.previewing = true
		cols, rows := m.previewCells()
		cmds = append(cmds, previewCmd(m.ctx, m.ctrl, cols, rows))
	}

	if m.currentView == ViewLogs && m.logState.follow && time.Since(m.logState.lastRefresh) >= LogRefreshInterval {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.log.Warn("save preferences failed", "path", m.prefsPath, "error", err)
	}
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	b.WriteString(m.renderContent())

	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderCamera()
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Session

type previewMsg struct {
	view string
	err  error
}

type opDoneMsg struct {
	op  string
	err error
}

type capturedMsg struct {
	res session.Result
	err error
}

type capturedViewMsg struct {
	id   string
	view string
}

type savedMsg struct {
	path string
	err  error
}

type clipboardMsg struct {
	err error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForChange(ctx context.Context, store *state.Store) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-store.Changes():
			return snapshotMsg(store.Snapshot())
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) cameraCmd(op string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		opCtx, cancel := context.WithTimeout(ctx, CameraOpTimeout)
		defer cancel()
		return opDoneMsg{op: op, err: fn(opCtx)}
	}
}

func (m Model) captureCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		opCtx, cancel := context.WithTimeout(ctx, CameraOpTimeout)
		defer cancel()
		res, err := ctrl.CaptureImage(opCtx)
		return capturedMsg{res: res, err: err}
	}
}

func (m Model) downloadCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		path, err := ctrl.Download(ctx)
		return savedMsg{path: path, err: err}
	}
}

func previewCmd(ctx context.Context, ctrl Controller, cols, rows int) tea.Cmd {
	return func() tea.Msg {
		grabCtx, cancel := context.WithTimeout(ctx, PreviewTimeout)
		defer cancel()
		frame, err := ctrl.PreviewFrame(grabCtx)
		if err != nil {
			return previewMsg{err: err}
		}
		return previewMsg{view: renderHalfBlocks(frame, cols, rows)}
	}
}

func (m Model) renderCapturedCmd() tea.Cmd {
	if !m.snapshot.HasCapture() || !m.ready {
		return nil
	}
	id, dataURL := m.snapshot.CaptureID, m.snapshot.CapturedImage
	cols, rows := m.capturedCells()
	log := m.log
	return func() tea.Msg {
		view, err := renderDataURL(dataURL, cols, rows)
		if err != nil {
			log.Warn("render capture failed", "capture", id, "error", err)
		}
		return capturedViewMsg{id: id, view: view}
	}
}

func copyCmd(dataURL string) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{err: clipboard.WriteAll(dataURL)}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
