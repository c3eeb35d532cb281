package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	locationdto "geowatch/internal/modules/location/dto"
	settingsdto "geowatch/internal/modules/settings/dto"
	"geowatch/internal/ui/components"
	"geowatch/internal/ui/theme"
)

// ─── ports ───────────────────────────────────────────────────────────────────

type locationPort interface {
	Settings(ctx context.Context) (settingsdto.SettingsOutput, error)
	Toggle(ctx context.Context, key string) (settingsdto.SettingsOutput, error)
	SetSetting(ctx context.Context, key, value string) (settingsdto.SettingsOutput, error)
	ResetSettings(ctx context.Context) (settingsdto.SettingsOutput, error)
	SettingKeys() []string
	WatchSettings(ctx context.Context) (<-chan settingsdto.SettingsOutput, error)
	Fetch(ctx context.Context, settings settingsdto.SettingsOutput) (locationdto.PositionOutput, error)
	StartWatch(ctx context.Context, settings settingsdto.SettingsOutput) (locationdto.WatchOutput, error)
	StopWatch(ctx context.Context) error
	Snapshot(ctx context.Context) locationdto.SnapshotOutput
	Subscribe() (<-chan locationdto.SessionEvent, func())
}

// ─── async messages ───────────────────────────────────────────────────────────

type settingsLoadedMsg struct {
	settings settingsdto.SettingsOutput
	err      error
}

type settingsWatchMsg struct {
	changes <-chan settingsdto.SettingsOutput
	err     error
}

type settingsChangedMsg struct {
	settings settingsdto.SettingsOutput
	ok       bool
}

type sessionEventMsg struct {
	event locationdto.SessionEvent
	ok    bool
}

type fetchDoneMsg struct {
	position locationdto.PositionOutput
	err      error
}

type watchStartedMsg struct {
	out locationdto.WatchOutput
	err error
}

type watchStoppedMsg struct{ err error }

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	Fetch   key.Binding
	Start   key.Binding
	Stop    key.Binding
	Palette key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:  key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "toggle")),
		Fetch:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "get location")),
		Start:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "start observing")),
		Stop:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop observing")),
		Palette: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Fetch, k.Start, k.Stop, k.Toggle, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle},
		{k.Fetch, k.Start, k.Stop},
		{k.Palette, k.Help, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. It shows the switches offered on the
// platform, the session controls and the last known position. Session state
// comes from the session event stream; the model never infers it.
type Model struct {
	ctx         context.Context
	displayName string
	location    locationPort
	prompter    *components.Prompter
	events      <-chan locationdto.SessionEvent
	unsubscribe func()
	changes     <-chan settingsdto.SettingsOutput

	settings    settingsdto.SettingsOutput
	hasSettings bool
	cursor      int

	state       string
	position    locationdto.PositionOutput
	hasPosition bool
	fetching    bool

	prompt   *components.PromptMsg
	keys     keyMap
	help     help.Model
	showHelp bool
	palette  components.Palette
	spinner  spinner.Model
	status   string
	width    int
	height   int
}

// ─── constructor ─────────────────────────────────────────────────────────────

func NewModel(ctx context.Context, displayName string, location locationPort, prompter *components.Prompter) Model {
	events, unsubscribe := location.Subscribe()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Peach)
	return Model{
		ctx:         ctx,
		displayName: displayName,
		location:    location,
		prompter:    prompter,
		events:      events,
		unsubscribe: unsubscribe,
		state:       location.Snapshot(ctx).State,
		keys:        defaultKeys(),
		help:        help.New(),
		palette:     components.NewPalette(paletteHints(location.SettingKeys())),
		spinner:     sp,
		status:      "ready",
	}
}

// Release drops the event subscription. Call it after the program exits.
func (m Model) Release() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func paletteHints(keys []string) []string {
	hints := []string{"fetch", "start", "stop", "reset"}
	for _, k := range keys {
		hints = append(hints, "set "+k+" <value>")
	}
	return hints
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadSettingsCmd(),
		m.watchSettingsCmd(),
		m.nextEventCmd(),
		m.prompter.Next(),
		m.spinner.Tick,
	)
}

// ─── update ───────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, cmd
		}
		model, next := m.handle(msg)
		return model, tea.Batch(cmd, next)
	}
	return m.handle(msg)
}

func (m Model) handle(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 80))
		m.help.Width = m.width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case settingsLoadedMsg:
		if msg.err != nil {
			m.status = "settings: " + msg.err.Error()
			return m, nil
		}
		m.applySettings(msg.settings)

	case settingsWatchMsg:
		if msg.err != nil {
			m.status = "settings watcher: " + msg.err.Error()
			return m, nil
		}
		m.changes = msg.changes
		return m, nextSettingsCmd(m.changes)

	case settingsChangedMsg:
		if !msg.ok {
			return m, nil
		}
		m.applySettings(msg.settings)
		m.status = "settings reloaded"
		return m, nextSettingsCmd(m.changes)

	case sessionEventMsg:
		if !msg.ok {
			return m, nil
		}
		m.applyEvent(msg.event)
		return m, m.nextEventCmd()

	case components.PromptMsg:
		if !msg.NeedsAnswer() && msg.Advisory.Kind == "toast" {
			m.status = advisoryText(msg.Advisory)
		} else {
			if m.prompt != nil {
				m.prompt.Answer("")
			}
			prompt := msg
			m.prompt = &prompt
		}
		return m, m.prompter.Next()

	case fetchDoneMsg:
		m.fetching = false
		if msg.err != nil {
			m.status = "get location: " + msg.err.Error()
			return m, nil
		}
		m.position = msg.position
		m.hasPosition = true
		m.status = "location updated"

	case watchStartedMsg:
		switch {
		case msg.err != nil:
			m.status = "start observing: " + msg.err.Error()
		case msg.out.AlreadyWatching:
			m.status = "already observing"
		case msg.out.ServiceBound:
			m.status = "observing with foreground service"
		default:
			m.status = "observing"
		}

	case watchStoppedMsg:
		if msg.err != nil {
			m.status = "stop observing: " + msg.err.Error()
		} else {
			m.status = "stopped observing"
		}

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.prompt != nil {
		return m.answerPrompt(msg)
	}
	if m.showHelp {
		if msg.String() == "?" || msg.String() == "esc" {
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.Palette):
		return m, m.palette.Open()
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.settings.Toggles)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if m.cursor < len(m.settings.Toggles) {
			return m, m.toggleCmd(m.settings.Toggles[m.cursor].Key)
		}
	case key.Matches(msg, m.keys.Fetch):
		return m.fetch()
	case key.Matches(msg, m.keys.Start):
		return m.startWatch()
	case key.Matches(msg, m.keys.Stop):
		return m.stopWatch()
	}
	return m, nil
}

func (m Model) answerPrompt(msg tea.KeyMsg) (Model, tea.Cmd) {
	prompt := *m.prompt
	actions := prompt.Advisory.Actions
	switch s := msg.String(); {
	case s == "esc":
		prompt.Answer("")
	case len(actions) == 0 && (s == "enter" || s == " "):
		prompt.Answer("")
	case len(s) == 1 && s[0] >= '1' && int(s[0]-'1') < len(actions):
		prompt.Answer(actions[s[0]-'1'])
	default:
		return m, nil
	}
	m.prompt = nil
	return m, nil
}

func (m Model) fetch() (Model, tea.Cmd) {
	if !m.canFetch() {
		m.status = "get location is unavailable while " + stateLabel(m.state)
		return m, nil
	}
	m.fetching = true
	m.status = "locating…"
	return m, m.fetchCmd()
}

func (m Model) startWatch() (Model, tea.Cmd) {
	if !m.canStart() {
		m.status = "start observing is unavailable while " + stateLabel(m.state)
		return m, nil
	}
	m.status = "starting…"
	return m, m.startWatchCmd()
}

func (m Model) stopWatch() (Model, tea.Cmd) {
	if !m.canStop() {
		m.status = "not observing"
		return m, nil
	}
	return m, m.stopWatchCmd()
}

// Get Location and Start Observing need an idle session; Stop Observing
// needs a live watch.
func (m Model) canFetch() bool { return m.hasSettings && m.state == "idle" && !m.fetching }
func (m Model) canStart() bool { return m.hasSettings && m.state == "idle" && !m.fetching }
func (m Model) canStop() bool  { return m.state == "watching" }

func (m *Model) applySettings(settings settingsdto.SettingsOutput) {
	m.settings = settings
	m.hasSettings = true
	if m.cursor >= len(settings.Toggles) {
		m.cursor = max(len(settings.Toggles)-1, 0)
	}
}

func (m *Model) applyEvent(event locationdto.SessionEvent) {
	switch event.Kind {
	case locationdto.EventState:
		m.state = event.State
	case locationdto.EventPosition:
		m.position = event.Position
		m.hasPosition = true
	case locationdto.EventAdvisory:
		m.status = event.Message
	}
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	header := m.renderHeader()
	statusBar := m.renderStatusBar()
	contentH := m.height - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < 1 {
		contentH = 1
	}

	var content string
	switch {
	case m.prompt != nil:
		content = lipgloss.Place(m.width, contentH, lipgloss.Center, lipgloss.Center,
			components.RenderPrompt(m.prompt.Advisory, m.width))
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH, lipgloss.Center, lipgloss.Center, m.palette.View())
	default:
		content = lipgloss.JoinHorizontal(lipgloss.Top, m.renderControls(), " ", m.renderPosition())
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

func (m Model) renderHeader() string {
	title := theme.Title.Render(m.displayName)
	platform := theme.Muted.Render(m.settings.Platform)
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(title+"  "+platform) + "\n"
}

func (m Model) renderControls() string {
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Settings") + "\n")
	for idx, toggle := range m.settings.Toggles {
		cursor := "  "
		if idx == m.cursor {
			cursor = theme.Hot.Render("› ")
		}
		value := theme.Off.Render("off")
		if toggle.On {
			value = theme.On.Render("on ")
		}
		sb.WriteString(fmt.Sprintf("%s%s  %s\n", cursor, value, toggle.Label))
	}
	sb.WriteString("\n")
	sb.WriteString(button("f Get Location", m.canFetch()) + " ")
	sb.WriteString(button("w Start Observing", m.canStart()) + " ")
	sb.WriteString(button("x Stop Observing", m.canStop()))
	return theme.PaneActive.Render(sb.String())
}

func button(label string, enabled bool) string {
	if enabled {
		return theme.Button.Render(label)
	}
	return theme.Disabled.Render(label)
}

func (m Model) renderPosition() string {
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Position") + "\n")
	p := m.position
	rows := [][2]string{
		{"Latitude", ""},
		{"Longitude", ""},
		{"Heading", ""},
		{"Accuracy", ""},
		{"Altitude", ""},
		{"Speed", ""},
		{"Timestamp", ""},
	}
	if m.hasPosition {
		rows[0][1] = fmt.Sprintf("%.6f", p.Latitude)
		rows[1][1] = fmt.Sprintf("%.6f", p.Longitude)
		rows[2][1] = optional(p.Heading, "%.1f°")
		rows[3][1] = fmt.Sprintf("%.1f m", p.AccuracyMeters)
		rows[4][1] = optional(p.Altitude, "%.1f m")
		rows[5][1] = optional(p.Speed, "%.1f m/s")
		rows[6][1] = p.CapturedAt.Local().Format("2006-01-02 15:04:05")
	}
	for _, row := range rows {
		sb.WriteString(theme.Muted.Render(fmt.Sprintf("%-10s", row[0])) + " " + row[1] + "\n")
	}
	return theme.Pane.Render(strings.TrimSuffix(sb.String(), "\n"))
}

func optional(v *float64, format string) string {
	if v == nil {
		return "–"
	}
	return fmt.Sprintf(format, *v)
}

func (m Model) renderStatusBar() string {
	left := theme.Hot.Render("● "+stateLabel(m.state)) + "  "
	if (m.state != "idle" && m.state != "watching") || m.fetching {
		left += m.spinner.View() + " "
	}
	left += m.status
	right := theme.Muted.Render("?:help  :::command  q:quit")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

func stateLabel(state string) string {
	return strings.ReplaceAll(state, "_", " ")
}

func advisoryText(advisory locationdto.Advisory) string {
	if advisory.Message != "" {
		return advisory.Message
	}
	return advisory.Title
}

// ─── palette execution ────────────────────────────────────────────────────────

func (m Model) executePalette(input string) (Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}
	switch parts[0] {
	case "fetch":
		return m.fetch()
	case "start":
		return m.startWatch()
	case "stop":
		return m.stopWatch()
	case "reset":
		return m, m.resetSettingsCmd()
	case "set":
		if len(parts) != 3 {
			m.status = "usage: set <key> <value>"
			return m, nil
		}
		return m, m.setSettingCmd(parts[1], parts[2])
	default:
		m.status = "unknown command: " + parts[0]
	}
	return m, nil
}

// ─── async commands ───────────────────────────────────────────────────────────

func (m Model) loadSettingsCmd() tea.Cmd {
	return func() tea.Msg {
		settings, err := m.location.Settings(m.ctx)
		return settingsLoadedMsg{settings: settings, err: err}
	}
}

func (m Model) watchSettingsCmd() tea.Cmd {
	return func() tea.Msg {
		changes, err := m.location.WatchSettings(m.ctx)
		return settingsWatchMsg{changes: changes, err: err}
	}
}

func nextSettingsCmd(changes <-chan settingsdto.SettingsOutput) tea.Cmd {
	return func() tea.Msg {
		settings, ok := <-changes
		return settingsChangedMsg{settings: settings, ok: ok}
	}
}

func (m Model) toggleCmd(key string) tea.Cmd {
	return func() tea.Msg {
		settings, err := m.location.Toggle(m.ctx, key)
		return settingsLoadedMsg{settings: settings, err: err}
	}
}

func (m Model) setSettingCmd(key, value string) tea.Cmd {
	return func() tea.Msg {
		settings, err := m.location.SetSetting(m.ctx, key, value)
		return settingsLoadedMsg{settings: settings, err: err}
	}
}

func (m Model) resetSettingsCmd() tea.Cmd {
	return func() tea.Msg {
		settings, err := m.location.ResetSettings(m.ctx)
		return settingsLoadedMsg{settings: settings, err: err}
	}
}

func (m Model) nextEventCmd() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.events
		return sessionEventMsg{event: event, ok: ok}
	}
}

func (m Model) fetchCmd() tea.Cmd {
	settings := m.settings
	return func() tea.Msg {
		position, err := m.location.Fetch(m.ctx, settings)
		return fetchDoneMsg{position: position, err: err}
	}
}

func (m Model) startWatchCmd() tea.Cmd {
	settings := m.settings
	return func() tea.Msg {
		out, err := m.location.StartWatch(m.ctx, settings)
		return watchStartedMsg{out: out, err: err}
	}
}

func (m Model) stopWatchCmd() tea.Cmd {
	return func() tea.Msg {
		return watchStoppedMsg{err: m.location.StopWatch(m.ctx)}
	}
}
