// Package tui is the interactive terminal surface: a query editor, a results
// pane and modal browsers for examples and session history.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/johan-st/sparql-tui/internal/catalog"
	"github.com/johan-st/sparql-tui/internal/config"
	"github.com/johan-st/sparql-tui/internal/console"
	"github.com/johan-st/sparql-tui/internal/history"
	"github.com/johan-st/sparql-tui/internal/service"
	"github.com/johan-st/sparql-tui/internal/sparql"
)

// Focus represents which pane is focused
type Focus int

const (
	FocusEditor Focus = iota
	FocusResults
)

type modal int

const (
	modalNone modal = iota
	modalExamples
	modalHistory
	modalHelp
)

const defaultProbeTimeout = 5 * time.Second

// Service is the remote query service as seen by the TUI.
type Service interface {
	console.Executor
	console.Pinger
	Examples(ctx context.Context) ([]service.Example, error)
}

// Options configures an App.
type Options struct {
	UI           config.UIConfig
	User         string
	Logger       *log.Logger
	ProbeTimeout time.Duration
}

// listItem implements list.Item for bubbles/list
type listItem struct {
	title string
	desc  string
	query string
}

func (i listItem) Title() string       { return i.title }
func (i listItem) Description() string { return i.desc }
func (i listItem) FilterValue() string { return i.title }

// App is the main TUI application model.
type App struct {
	// Dependencies
	svc     Service
	session *console.Session
	ctrl    *console.Controller
	toast   *console.Toast
	prober  *console.Prober
	store   *history.Store
	cfg     config.UIConfig
	user    string
	logger  *log.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// Window size
	width, height int

	// State
	focus Focus
	modal modal

	editor  textarea.Model
	results table.Model
	spinner spinner.Model
	help    help.Model

	// Command line
	command       textinput.Model
	commandActive bool

	// Column scrolling
	colOffset   int
	visibleCols int

	// Examples
	examples     []service.Example
	examplesErr  error
	examplesList list.Model

	// History
	historyList list.Model
	historyErr  error

	// Query recall
	recall      []string // distinct queries, most recent first
	recallIdx   int      // -1 = current input, 0+ = recall index
	recallDraft string   // saves current input while recalling

	// Key bindings
	keys KeyMap
}

// NewApp creates a new TUI application bound to a fresh session.
func NewApp(svc Service, opts Options, width, height int) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	probeTimeout := opts.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}

	session := console.NewSession()
	store, err := history.NewStore(session.ID)
	if err != nil {
		return nil, err
	}
	toast := console.NewToast(opts.UI.GetNotifyDelay())
	ctrl := console.NewController(session, svc, toast,
		console.WithRecorder(store),
		console.WithLogger(logger.With("session", session.ID)))

	editor := textarea.New()
	editor.Placeholder = "Enter your SPARQL query here..."
	editor.ShowLineNumbers = true
	editor.CharLimit = 0
	editor.MaxHeight = 0
	editor.SetValue(opts.UI.DefaultQuery)
	editor.Focus()

	results := table.New(
		table.WithColumns([]table.Column{}),
		table.WithRows([]table.Row{}),
		table.WithFocused(false),
	)
	results.SetStyles(table.Styles{
		Header:   tableHeaderStyle,
		Cell:     tableCellStyle,
		Selected: tableSelectedRowStyle,
	})

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = statusKeyStyle

	command := textinput.New()
	command.Prompt = ":"
	command.PromptStyle = commandPromptStyle
	command.Placeholder = "run, clear, format, examples, example <n>, history, probe, help, quit"

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		svc:          svc,
		session:      session,
		ctrl:         ctrl,
		toast:        toast,
		prober:       console.NewProber(svc, probeTimeout),
		store:        store,
		cfg:          opts.UI,
		user:         opts.User,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		width:        width,
		height:       height,
		focus:        FocusEditor,
		editor:       editor,
		results:      results,
		spinner:      spin,
		help:         help.New(),
		command:      command,
		examplesList: newModalList("Examples"),
		historyList:  newModalList("History"),
		recallIdx:    -1,
		keys:         DefaultKeyMap(),
	}
	app.updateSizes()

	return app, nil
}

func newModalList(title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(primaryColor).BorderLeftForeground(primaryColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(mutedColor).BorderLeftForeground(primaryColor)
	l := list.New([]list.Item{}, delegate, 40, 10)
	l.Title = title
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	return l
}

// Session returns the app's console session.
func (a *App) Session() *console.Session {
	return a.session
}

// Close cancels in-flight work and releases the session's resources.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.cancel()
		a.toast.Stop()
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close history", "err", err)
		}
	})
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		a.probe(false),
		a.loadExamples,
		a.waitForToast,
	)
}

// probe checks connectivity once.
func (a *App) probe(manual bool) tea.Cmd {
	return func() tea.Msg {
		return ProbedMsg{Connectivity: a.prober.Probe(a.ctx), Manual: manual}
	}
}

// loadExamples fetches the example list from the service.
func (a *App) loadExamples() tea.Msg {
	examples, err := a.svc.Examples(a.ctx)
	return ExamplesLoadedMsg{Examples: examples, Error: err}
}

// loadHistory reads the session's attempt log.
func (a *App) loadHistory() tea.Msg {
	limit := a.cfg.HistoryLimit
	entries, err := a.store.Recent(limit)
	if err != nil {
		return HistoryLoadedMsg{Error: err}
	}
	queries, err := a.store.Queries(limit)
	return HistoryLoadedMsg{Entries: entries, Queries: queries, Error: err}
}

// waitForToast blocks until the visible notification expires.
func (a *App) waitForToast() tea.Msg {
	select {
	case gen := <-a.toast.Expired():
		return ToastExpiredMsg{Gen: gen}
	case <-a.toast.Done():
		return nil
	}
}

// run begins an attempt and performs its network call off the event loop.
func (a *App) run(raw string) tea.Cmd {
	attempt, ok := a.ctrl.Begin(raw)
	if !ok {
		return nil
	}
	a.recallIdx = -1
	a.updateResultsTable()

	ctx := a.ctx
	return tea.Batch(a.spinner.Tick, func() tea.Msg {
		return OutcomeMsg{Outcome: a.ctrl.Run(ctx, attempt)}
	})
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateSizes()
		return a, nil

	case OutcomeMsg:
		a.ctrl.Complete(msg.Outcome)
		a.colOffset = 0
		a.results.SetCursor(0)
		a.updateResultsTable()
		return a, a.loadHistory

	case ProbedMsg:
		a.session.SetConnected(msg.Connectivity == console.Connected)
		if msg.Manual {
			if msg.Connectivity == console.Connected {
				a.toast.Notify("Server is reachable")
			} else {
				a.toast.Notify(console.MsgConnectFailed)
			}
		}
		return a, nil

	case ExamplesLoadedMsg:
		a.examplesErr = msg.Error
		if msg.Error != nil {
			a.logger.Warn("failed to load examples", "err", msg.Error)
			return a, nil
		}
		a.examples = msg.Examples
		a.updateExamplesList()
		return a, nil

	case HistoryLoadedMsg:
		a.historyErr = msg.Error
		if msg.Error != nil {
			a.logger.Warn("failed to load history", "err", msg.Error)
			return a, nil
		}
		a.recall = msg.Queries
		a.updateHistoryList(msg.Entries)
		return a, nil

	case ToastExpiredMsg:
		a.toast.Dismiss(msg.Gen)
		return a, a.waitForToast

	case spinner.TickMsg:
		if !a.session.Busy() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	if a.commandActive {
		a.command, cmd = a.command.Update(msg)
	} else if a.focus == FocusEditor && a.modal == modalNone {
		a.editor, cmd = a.editor.Update(msg)
	}
	return a, cmd
}

func (a *App) updateExamplesList() {
	items := make([]list.Item, len(a.examples))
	for i, ex := range a.examples {
		items[i] = listItem{
			title: fmt.Sprintf("%d. %s", i+1, console.EscapeForDisplay(ex.Name)),
			desc:  console.EscapeForDisplay(ex.Description),
			query: ex.Query,
		}
	}
	a.examplesList.SetItems(items)
}

func (a *App) updateHistoryList(entries []*history.Entry) {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = listItem{
			title: console.EscapeForDisplay(e.Title()),
			desc:  e.Summary(),
			query: e.Query,
		}
	}
	a.historyList.SetItems(items)
}

// updateSizes recalculates component sizes after a resize.
func (a *App) updateSizes() {
	innerWidth := a.width - 4
	if innerWidth < 10 {
		innerWidth = 10
	}
	a.editor.SetWidth(innerWidth)
	a.editor.SetHeight(a.editorPaneHeight() - 2)
	a.command.Width = a.width - 4
	a.help.Width = a.width

	modalWidth, modalHeight := a.modalSize()
	a.examplesList.SetSize(modalWidth, modalHeight-6)
	a.historyList.SetSize(modalWidth, modalHeight-2)

	a.updateResultsTable()
}

func (a *App) editorPaneHeight() int {
	h := (a.height - 2) * 2 / 5
	if h < 5 {
		h = 5
	}
	return h
}

func (a *App) resultsPaneHeight() int {
	h := a.height - 2 - a.editorPaneHeight()
	if h < 3 {
		h = 3
	}
	return h
}

func (a *App) modalSize() (int, int) {
	w := a.width * 3 / 4
	if w < 30 {
		w = 30
	}
	h := a.height * 3 / 4
	if h < 10 {
		h = 10
	}
	return w, h
}

func (a *App) setFocus(f Focus) {
	a.focus = f
	if f == FocusEditor {
		a.results.Blur()
		a.editor.Focus()
		return
	}
	a.editor.Blur()
	a.results.Focus()
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.Quit) {
		a.Close()
		return a, tea.Quit
	}

	if a.commandActive {
		return a.handleCommandInput(msg)
	}

	switch a.modal {
	case modalHelp:
		if key.Matches(msg, a.keys.Back) || key.Matches(msg, a.keys.Help) ||
			key.Matches(msg, a.keys.HelpPane) || key.Matches(msg, a.keys.QuitPane) {
			a.modal = modalNone
		}
		return a, nil
	case modalExamples:
		return a.handleExamplesKey(msg)
	case modalHistory:
		return a.handleHistoryKey(msg)
	}

	switch {
	case key.Matches(msg, a.keys.Run):
		return a, a.run(a.editor.Value())

	case key.Matches(msg, a.keys.Clear):
		a.clear()
		return a, nil

	case key.Matches(msg, a.keys.Format):
		a.format()
		return a, nil

	case key.Matches(msg, a.keys.Examples):
		return a, a.openExamples()

	case key.Matches(msg, a.keys.History):
		a.modal = modalHistory
		return a, a.loadHistory

	case key.Matches(msg, a.keys.Help):
		a.modal = modalHelp
		return a, nil

	case key.Matches(msg, a.keys.NextPane):
		if a.focus == FocusEditor {
			a.setFocus(FocusResults)
		} else {
			a.setFocus(FocusEditor)
		}
		return a, nil
	}

	if a.focus == FocusEditor {
		return a.handleEditorKey(msg)
	}
	return a.handleResultsKey(msg)
}

func (a *App) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.RecallPrev):
		a.recallOlder()
		return a, nil
	case key.Matches(msg, a.keys.RecallNext):
		a.recallNewer()
		return a, nil
	case key.Matches(msg, a.keys.Back):
		a.setFocus(FocusResults)
		return a, nil
	}

	var cmd tea.Cmd
	a.editor, cmd = a.editor.Update(msg)
	return a, cmd
}

func (a *App) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.QuitPane):
		a.Close()
		return a, tea.Quit

	case key.Matches(msg, a.keys.HelpPane):
		a.modal = modalHelp
		return a, nil

	case key.Matches(msg, a.keys.Command):
		a.commandActive = true
		a.command.SetValue("")
		return a, a.command.Focus()

	case key.Matches(msg, a.keys.Left):
		if a.colOffset > 0 {
			a.colOffset--
			a.updateResultsTable()
		}
		return a, nil

	case key.Matches(msg, a.keys.Right):
		if a.colOffset+a.visibleCols < len(a.session.Display().Columns) {
			a.colOffset++
			a.updateResultsTable()
		}
		return a, nil

	case key.Matches(msg, a.keys.Select):
		a.setFocus(FocusEditor)
		return a, nil
	}

	var cmd tea.Cmd
	a.results, cmd = a.results.Update(msg)
	return a, cmd
}

func (a *App) handleCommandInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.commandActive = false
		a.command.Blur()
		return a, nil
	case tea.KeyEnter:
		line := a.command.Value()
		a.commandActive = false
		a.command.Blur()
		return a.execCommand(line)
	}

	var cmd tea.Cmd
	a.command, cmd = a.command.Update(msg)
	return a, cmd
}

func (a *App) handleExamplesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Back), key.Matches(msg, a.keys.QuitPane):
		a.modal = modalNone
		return a, nil
	case key.Matches(msg, a.keys.Select):
		item, ok := a.examplesList.SelectedItem().(listItem)
		a.modal = modalNone
		if !ok {
			return a, nil
		}
		return a.execCommand(console.LoadTrigger(item.query))
	}

	var cmd tea.Cmd
	a.examplesList, cmd = a.examplesList.Update(msg)
	return a, cmd
}

func (a *App) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Back), key.Matches(msg, a.keys.QuitPane):
		a.modal = modalNone
		return a, nil
	case key.Matches(msg, a.keys.Select):
		item, ok := a.historyList.SelectedItem().(listItem)
		a.modal = modalNone
		if ok {
			a.loadQuery(item.query)
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.historyList, cmd = a.historyList.Update(msg)
	return a, cmd
}

func (a *App) openExamples() tea.Cmd {
	a.modal = modalExamples
	if a.examplesErr != nil || a.examples == nil {
		return a.loadExamples
	}
	return nil
}

func (a *App) clear() {
	a.session.Clear()
	a.colOffset = 0
	a.updateResultsTable()
}

func (a *App) format() {
	a.editor.SetValue(sparql.Format(a.editor.Value()))
}

// loadQuery replaces the editor content and focuses it.
func (a *App) loadQuery(q string) {
	a.editor.SetValue(q)
	a.recallIdx = -1
	a.setFocus(FocusEditor)
}

func (a *App) recallOlder() {
	if a.recallIdx+1 >= len(a.recall) {
		return
	}
	if a.recallIdx == -1 {
		a.recallDraft = a.editor.Value()
	}
	a.recallIdx++
	a.editor.SetValue(a.recall[a.recallIdx])
}

func (a *App) recallNewer() {
	if a.recallIdx < 0 {
		return
	}
	a.recallIdx--
	if a.recallIdx == -1 {
		a.editor.SetValue(a.recallDraft)
		return
	}
	a.editor.SetValue(a.recall[a.recallIdx])
}

// View implements tea.Model.
func (a *App) View() string {
	if a.width < 40 || a.height < 12 {
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center,
			errorStyle.Render("Terminal too small\nMin: 40x12"))
	}

	switch a.modal {
	case modalHelp:
		return a.renderHelp()
	case modalExamples:
		return a.renderExamples()
	case modalHistory:
		return a.renderHistory()
	}

	var b strings.Builder

	editorPane := renderPaneWithTitle(a.editor.View(), a.width, a.editorPaneHeight(), "SPARQL Query", a.focus == FocusEditor)
	resultsPane := renderPaneWithTitle(a.renderResultsBody(a.width, a.resultsPaneHeight()),
		a.width, a.resultsPaneHeight(), a.resultsTitle(), a.focus == FocusResults)

	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, editorPane, resultsPane))
	b.WriteString("\n")
	b.WriteString(a.renderMessageLine())
	b.WriteString("\n")
	b.WriteString(a.renderStatusBar())

	return b.String()
}

// renderMessageLine shows the command line, the current notification or the key hints.
func (a *App) renderMessageLine() string {
	if a.commandActive {
		return a.command.View()
	}
	if msg, ok := a.toast.Current(); ok {
		return toastStyle.Render(console.EscapeForDisplay(msg))
	}
	return a.help.ShortHelpView(a.keys.ShortHelp())
}

func (a *App) renderStatusBar() string {
	var leftParts []string
	var rightParts []string

	// Left side: title and user
	leftParts = append(leftParts, statusKeyStyle.Render("sparql-tui"))
	if a.user != "" {
		leftParts = append(leftParts, dimItemStyle.Render(a.user))
	}

	// Right side: busy, result count, connectivity, help
	if a.session.Busy() {
		rightParts = append(rightParts, a.spinner.View())
	}
	if d := a.session.Display(); d.Kind != console.ViewNone {
		style := statusValueStyle
		if d.Kind == console.ViewError {
			style = errorStyle
		} else if d.Kind == console.ViewTable {
			style = successStyle
		}
		rightParts = append(rightParts, style.Render(d.Count))
	}
	rightParts = append(rightParts, badge(a.session.Connectivity()))
	rightParts = append(rightParts, dimItemStyle.Render("| f1:help ctrl+c:quit"))

	leftContent := strings.Join(leftParts, " ")
	rightContent := strings.Join(rightParts, " ")

	// Calculate padding between left and right
	padding := a.width - lipgloss.Width(leftContent) - lipgloss.Width(rightContent) - 2 // -2 for statusBar padding
	if padding < 1 {
		padding = 1
	}

	content := leftContent + strings.Repeat(" ", padding) + rightContent
	return statusBarStyle.Width(a.width).Render(content)
}

func (a *App) renderHelp() string {
	var b strings.Builder

	b.WriteString(a.help.FullHelpView(a.keys.FullHelp()))
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render("Commands"))
	b.WriteString("\n")

	for _, c := range commandHelp {
		b.WriteString(helpKeyStyle.Render(fmt.Sprintf("%-14s", c.usage)))
		b.WriteString(helpDescStyle.Render(c.desc))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimItemStyle.Render("Press f1 or Esc to close"))

	modal := modalStyle.Render(titleStyle.Render("Help") + "\n\n" + b.String())
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, modal)
}

func (a *App) renderExamples() string {
	w, _ := a.modalSize()
	var b strings.Builder

	switch {
	case a.examplesErr != nil:
		b.WriteString(errorStyle.Render("Failed to load examples"))
		b.WriteString("\n")
		b.WriteString(dimItemStyle.Render(console.EscapeForDisplay(a.examplesErr.Error())))
	case a.examples == nil:
		b.WriteString(a.spinner.View() + dimItemStyle.Render(" Loading examples..."))
	case len(a.examples) == 0:
		b.WriteString(dimItemStyle.Render("The server has no examples"))
	default:
		b.WriteString(a.examplesList.View())
		if item, ok := a.examplesList.SelectedItem().(listItem); ok {
			snippet := catalog.Snippet(item.query, a.cfg.SnippetLength)
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().Width(w).Foreground(mutedColor).
				Render(console.EscapeForDisplay(strings.Join(strings.Fields(snippet), " "))))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(dimItemStyle.Render("enter: load into editor · esc: close"))

	modal := modalStyle.Render(b.String())
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, modal)
}

func (a *App) renderHistory() string {
	var b strings.Builder

	switch {
	case a.historyErr != nil:
		b.WriteString(errorStyle.Render(console.EscapeForDisplay(a.historyErr.Error())))
	case len(a.historyList.Items()) == 0:
		b.WriteString(titleStyle.Render("History"))
		b.WriteString("\n")
		b.WriteString(dimItemStyle.Render("No queries run in this session yet"))
	default:
		b.WriteString(a.historyList.View())
	}

	b.WriteString("\n\n")
	b.WriteString(dimItemStyle.Render("enter: load into editor · esc: close"))

	modal := modalStyle.Render(b.String())
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, modal)
}
