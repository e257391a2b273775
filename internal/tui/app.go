// Package tui provides the interactive Bubble Tea dashboard for lychnos.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/davidschlachter/lychnos/internal/cli"
	"github.com/davidschlachter/lychnos/internal/config"
	"github.com/davidschlachter/lychnos/internal/pipeline"
	"github.com/davidschlachter/lychnos/internal/tui/components"
	"github.com/davidschlachter/lychnos/internal/tui/theme"
)

// Reporter produces the reports the dashboard shows.
type Reporter interface {
	Overview(ctx context.Context, budgetID int64, now time.Time) (pipeline.Overview, error)
	CategoryDetail(ctx context.Context, targetID int64, now time.Time) (pipeline.CategoryDetail, error)
	BigPicture(ctx context.Context, now time.Time) (pipeline.BigPicture, error)
}

// Resetter drops cached upstream data before a manual refresh.
type Resetter interface {
	Reset()
}

// Connector builds a Reporter from the current configuration. It runs at
// startup and again whenever the Firefly settings change.
type Connector func(cfg config.Config) (Reporter, Resetter, error)

// DataLoadedMsg is sent when a load or refresh finishes.
type DataLoadedMsg struct {
	Overview      pipeline.Overview
	OverviewErr   error
	BigPicture    pipeline.BigPicture
	BigPictureErr error
	LoadTime      time.Duration
}

// DetailLoadedMsg carries a category's monthly breakdown.
type DetailLoadedMsg struct {
	Detail pipeline.CategoryDetail
	Err    error
}

type tickMsg struct{}

// App is the root Bubble Tea model.
type App struct {
	connect  Connector
	reports  Reporter
	cache    Resetter
	connErr  error
	budgetID int64
	now      func() time.Time

	// Data
	overview      pipeline.Overview
	overviewErr   error
	bigPicture    pipeline.BigPicture
	bigPictureErr error
	loaded        bool
	loadTime      time.Duration

	// Auto-refresh state
	autoRefresh     bool
	refreshInterval time.Duration
	lastRefresh     time.Time
	refreshing      bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Per-tab state
	summary  summaryState
	settings settingsState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals SetupValues
	needSetup bool

	spinner spinner.Model
}

const (
	minTerminalWidth = 80
	maxContentWidth  = 160
	minContentHeight = 5

	tabSummary    = 0
	tabBigPicture = 1
	tabSettings   = 2

	minRefreshInterval = 10 * time.Second
	defaultRefresh     = 5 * time.Minute
)

// loadConfigOrDefault loads config, returning defaults on error.
// This ensures the TUI can always start even if config is corrupted.
func loadConfigOrDefault() config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// NewApp creates a new TUI app model. budgetID 0 follows the current budget.
func NewApp(connect Connector, budgetID int64) App {
	cfg := loadConfigOrDefault()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	a := App{
		connect:         connect,
		budgetID:        budgetID,
		now:             time.Now,
		needSetup:       !config.Exists() && config.GetFireflyURL(cfg) == "",
		autoRefresh:     cfg.TUI.AutoRefresh,
		refreshInterval: refreshInterval(cfg),
		spinner:         sp,
	}

	if a.needSetup {
		a.setupVals = SetupValuesFrom(cfg)
		a.setupForm = NewSetupForm(&a.setupVals)
	} else {
		a.reconnect(cfg)
	}
	return a
}

func refreshInterval(cfg config.Config) time.Duration {
	d := time.Duration(cfg.TUI.RefreshIntervalSec) * time.Second
	if d < minRefreshInterval {
		return defaultRefresh
	}
	return d
}

func (a *App) reconnect(cfg config.Config) {
	a.reports, a.cache, a.connErr = a.connect(cfg)
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		a.spinner.Tick,
		tickCmd(),
	}
	if a.needSetup {
		cmds = append(cmds, a.setupForm.Init())
	} else {
		cmds = append(cmds, a.loadCmd())
	}
	return tea.Batch(cmds...)
}

// loadCmd fetches the overview and big picture, or reports the connection
// error if there is no Reporter.
func (a App) loadCmd() tea.Cmd {
	if a.reports == nil {
		err := a.connErr
		return func() tea.Msg {
			return DataLoadedMsg{OverviewErr: err, BigPictureErr: err}
		}
	}
	return loadDataCmd(a.reports, a.budgetID, a.now())
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if a.activeTab == tabSummary {
				a.summary.move(-1, len(a.overview.Rows))
			}
		case tea.MouseButtonWheelDown:
			if a.activeTab == tabSummary {
				a.summary.move(1, len(a.overview.Rows))
			}
		case tea.MouseButtonLeft:
			if msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case DataLoadedMsg:
		a.loaded = true
		a.refreshing = false
		a.loadTime = msg.LoadTime
		a.lastRefresh = a.now()
		a.overview, a.overviewErr = msg.Overview, msg.OverviewErr
		a.bigPicture, a.bigPictureErr = msg.BigPicture, msg.BigPictureErr
		a.summary.clamp(len(a.overview.Rows))
		return a, nil

	case DetailLoadedMsg:
		a.summary.detailLoading = false
		if msg.Err != nil {
			a.summary.detailErr = msg.Err
			return a, nil
		}
		d := msg.Detail
		a.summary.detail = &d
		return a, nil

	case spinner.TickMsg:
		if !a.loaded || a.refreshing || a.summary.detailLoading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.autoRefresh && !a.refreshing && a.reports != nil {
			if a.now().Sub(a.lastRefresh) >= a.refreshInterval {
				if a.cache != nil {
					a.cache.Reset()
				}
				a.refreshing = true
				cmds = append(cmds, a.loadCmd(), a.spinner.Tick)
			}
		}
		return a, tea.Batch(cmds...)
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}

	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}

	// First-run setup wizard intercepts all keys
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}

	if !a.loaded {
		if key == "q" {
			return a, tea.Quit
		}
		return a, nil
	}

	if a.activeTab == tabSettings && a.settings.editing {
		return a.updateSettingsInput(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch a.activeTab {
	case tabSummary:
		if m, cmd, ok := a.updateSummaryKey(key); ok {
			return m, cmd
		}
	case tabSettings:
		if m, cmd, ok := a.updateSettingsKey(key); ok {
			return m, cmd
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if a.refreshing {
			return a, nil
		}
		if a.cache != nil {
			a.cache.Reset()
		}
		a.refreshing = true
		return a, tea.Batch(a.loadCmd(), a.spinner.Tick)
	case "R":
		a.autoRefresh = !a.autoRefresh
		// Persist to config (best-effort, ignore errors)
		cfg := loadConfigOrDefault()
		cfg.TUI.AutoRefresh = a.autoRefresh
		_ = config.Save(cfg)
		return a, nil
	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	}

	if r := []rune(key); len(r) == 1 {
		if idx := components.TabIdxByKey(r[0]); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		cfg := loadConfigOrDefault()
		a.setupVals.Apply(&cfg)
		theme.SetActive(cfg.Appearance.Theme)
		if err := config.Save(cfg); err != nil {
			a.settings.saveErr = err
		}
		a.setupForm = nil
		a.needSetup = false
		a.reconnect(cfg)
		return a, a.loadCmd()
	case huh.StateAborted:
		a.setupForm = nil
		a.needSetup = false
		a.reconnect(loadConfigOrDefault())
		return a, a.loadCmd()
	}

	return a, cmd
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  lychnos needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)

	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ lychnos"))
	b.WriteString(subtitleStyle.Render(" · Budget pacing"))
	b.WriteString("\n\n")
	b.WriteString(spinnerStyle.Render(a.spinner.View()))
	b.WriteString(subtitleStyle.Render(" Fetching totals from Firefly III..."))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings []struct{ key, desc string }
	}{
		{"Navigation", []struct{ key, desc string }{
			{"s b x", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Move between categories"},
			{"Enter", "Monthly breakdown"},
			{"Esc", "Back"},
		}},
		{"Actions", []struct{ key, desc string }{
			{"r", "Refresh data"},
			{"R", "Toggle auto-refresh"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, sec := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(sec.title))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w)

	label := ""
	if a.overviewErr == nil && a.overview.Budget.ID != 0 {
		label = cli.FormatPeriod(a.overview.Budget.Start, a.overview.Budget.End)
	}
	dataAge := ""
	if !a.lastRefresh.IsZero() {
		dataAge = a.now().Sub(a.lastRefresh).Truncate(time.Second).String()
	}
	statusBar := components.RenderStatusBar(w, label, dataAge, a.refreshing, a.autoRefresh)

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabSummary:
		content = a.renderSummaryTab(cw, contentH)
	case tabBigPicture:
		content = a.renderBigPictureTab(cw)
	case tabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// renderError draws a failed load inside a card.
func renderError(title string, err error, cw int) string {
	t := theme.Active
	style := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
	hint := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	return components.ContentCard(title,
		style.Render(truncStr(err.Error(), components.CardInnerWidth(cw)))+"\n\n"+
			hint.Render("Check the Settings tab, then press r to retry."),
		cw)
}

// ─── Commands ───────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// loadDataCmd fetches the budget overview and the big picture concurrently.
// Each half reports its own error so one failing does not blank the other.
func loadDataCmd(reports Reporter, budgetID int64, now time.Time) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		var msg DataLoadedMsg
		var g errgroup.Group
		g.Go(func() error {
			msg.Overview, msg.OverviewErr = reports.Overview(ctx, budgetID, now)
			return nil
		})
		g.Go(func() error {
			msg.BigPicture, msg.BigPictureErr = reports.BigPicture(ctx, now)
			return nil
		})
		_ = g.Wait()

		msg.LoadTime = time.Since(start)
		return msg
	}
}

func fetchDetailCmd(reports Reporter, targetID int64, now time.Time) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		d, err := reports.CategoryDetail(ctx, targetID, now)
		return DetailLoadedMsg{Detail: d, Err: err}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1 // separator
	}
	return -1
}
