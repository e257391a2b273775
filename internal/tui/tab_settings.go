package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/davidschlachter/lychnos/internal/cli"
	"github.com/davidschlachter/lychnos/internal/config"
	"github.com/davidschlachter/lychnos/internal/tui/components"
	"github.com/davidschlachter/lychnos/internal/tui/theme"
)

const (
	settingsFieldURL = iota
	settingsFieldToken
	settingsFieldTaxCategory
	settingsFieldLocation
	settingsFieldTheme
	settingsFieldAutoRefresh
	settingsFieldRefreshInterval
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool  // flash "saved" message briefly
	saveErr error // non-nil if last save failed
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50
	return ti
}

func (a App) updateSettingsKey(key string) (m tea.Model, cmd tea.Cmd, ok bool) {
	switch key {
	case "j", "down":
		if a.settings.cursor < settingsFieldCount-1 {
			a.settings.cursor++
		}
		return a, nil, true
	case "k", "up":
		if a.settings.cursor > 0 {
			a.settings.cursor--
		}
		return a, nil, true
	case "enter":
		m, cmd := a.settingsStartEdit()
		return m, cmd, true
	}
	return a, nil, false
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	cfg := loadConfigOrDefault()
	a.settings.editing = true
	a.settings.saved = false

	ti := newSettingsInput()

	switch a.settings.cursor {
	case settingsFieldURL:
		ti.Placeholder = "https://firefly.example.com"
		ti.SetValue(cfg.Firefly.URL)
	case settingsFieldToken:
		ti.Placeholder = "personal access token"
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
		ti.SetValue(cfg.Firefly.Token)
	case settingsFieldTaxCategory:
		ti.Placeholder = "taxes"
		ti.SetValue(cfg.General.TaxCategory)
	case settingsFieldLocation:
		ti.Placeholder = "America/Toronto (empty for system zone)"
		ti.SetValue(cfg.General.Location)
	case settingsFieldTheme:
		ti.Placeholder = strings.Join(theme.Names(), ", ")
		ti.SetValue(cfg.Appearance.Theme)
	case settingsFieldAutoRefresh:
		ti.Placeholder = "true or false"
		ti.SetValue(strconv.FormatBool(a.autoRefresh))
	case settingsFieldRefreshInterval:
		ti.Placeholder = "300 (seconds, minimum 10)"
		ti.SetValue(strconv.Itoa(int(a.refreshInterval.Seconds())))
	}

	ti.Focus()
	a.settings.input = ti
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		reload := a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		if reload {
			a.refreshing = true
			return a, tea.Batch(a.loadCmd(), a.spinner.Tick)
		}
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsSave validates and persists the edited field. It reports whether
// the data source changed and the reports need reloading.
func (a *App) settingsSave() bool {
	cfg := loadConfigOrDefault()
	val := strings.TrimSpace(a.settings.input.Value())
	reconnect := false

	switch a.settings.cursor {
	case settingsFieldURL:
		cfg.Firefly.URL = strings.TrimRight(val, "/")
		reconnect = true
	case settingsFieldToken:
		cfg.Firefly.Token = val
		reconnect = true
	case settingsFieldTaxCategory:
		cfg.General.TaxCategory = val
		reconnect = true
	case settingsFieldLocation:
		cfg.General.Location = val
		reconnect = true
	case settingsFieldTheme:
		if !theme.Valid(val) {
			a.settings.saveErr = fmt.Errorf("unknown theme %q", val)
			return false
		}
		cfg.Appearance.Theme = val
	case settingsFieldAutoRefresh:
		b, err := strconv.ParseBool(val)
		if err != nil {
			a.settings.saveErr = fmt.Errorf("auto refresh must be true or false")
			return false
		}
		cfg.TUI.AutoRefresh = b
	case settingsFieldRefreshInterval:
		n, err := strconv.Atoi(val)
		if err != nil {
			a.settings.saveErr = fmt.Errorf("refresh interval must be a number of seconds")
			return false
		}
		cfg.TUI.RefreshIntervalSec = n
	}

	if err := config.Validate(cfg); err != nil {
		a.settings.saveErr = err
		return false
	}
	if err := config.Save(cfg); err != nil {
		a.settings.saveErr = err
		return false
	}
	a.settings.saveErr = nil

	theme.SetActive(cfg.Appearance.Theme)
	a.autoRefresh = cfg.TUI.AutoRefresh
	a.refreshInterval = refreshInterval(cfg)

	if reconnect {
		a.reconnect(cfg)
		a.summary.closeDetail()
	}
	return reconnect
}

func maskToken(tok string) string {
	switch {
	case tok == "":
		return "(not set)"
	case len(tok) > 16:
		return tok[:6] + "..." + tok[len(tok)-4:]
	default:
		return "****"
	}
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	cfg := loadConfigOrDefault()

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	location := cfg.General.Location
	if location == "" {
		location = "(system: " + time.Local.String() + ")"
	}

	fields := []struct{ label, value string }{
		{"Firefly URL", orUnset(config.GetFireflyURL(cfg))},
		{"Access Token", maskToken(config.GetFireflyToken(cfg))},
		{"Tax Category", cfg.General.TaxCategory},
		{"Time Zone", location},
		{"Theme", cfg.Appearance.Theme},
		{"Auto Refresh", strconv.FormatBool(a.autoRefresh)},
		{"Refresh Interval", fmt.Sprintf("%ds", int(a.refreshInterval.Seconds()))},
	}

	innerW := components.CardInnerWidth(cw)
	var formBody strings.Builder
	for i, f := range fields {
		if a.settings.editing && i == a.settings.cursor {
			formBody.WriteString(markerStyle.Render("▸ "))
			formBody.WriteString(accentStyle.Render(fmt.Sprintf("%-18s ", f.label)))
			formBody.WriteString(a.settings.input.View())
			formBody.WriteString("\n")
			continue
		}

		if i == a.settings.cursor {
			marker := markerStyle.Render("▸ ")
			label := selectedLabelStyle.Render(fmt.Sprintf("%-18s ", f.label+":"))
			value := selectedStyle.Render(f.value)
			formBody.WriteString(marker + label + value)
			if padLen := innerW - lipgloss.Width(marker) - lipgloss.Width(label) - lipgloss.Width(value); padLen > 0 {
				formBody.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", padLen)))
			}
		} else {
			formBody.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			formBody.WriteString(labelStyle.Render(fmt.Sprintf("%-18s ", f.label+":")))
			formBody.WriteString(valueStyle.Render(f.value))
		}
		formBody.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		formBody.WriteString("\n")
		formBody.WriteString(warnStyle.Render(fmt.Sprintf("Save failed: %s", a.settings.saveErr)))
	} else if a.settings.saved {
		formBody.WriteString("\n")
		formBody.WriteString(greenStyle.Render("Saved!"))
	}

	formBody.WriteString("\n")
	formBody.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	connection := "connected"
	if a.connErr != nil {
		connection = a.connErr.Error()
	}

	var infoBody strings.Builder
	infoBody.WriteString(labelStyle.Render("Connection:  ") + valueStyle.Render(truncStr(connection, innerW-13)) + "\n")
	infoBody.WriteString(labelStyle.Render("Categories:  ") + valueStyle.Render(cli.FormatNumber(int64(len(a.overview.Rows)))) + "\n")
	infoBody.WriteString(labelStyle.Render("Load time:   ") + valueStyle.Render(fmt.Sprintf("%.1fs", a.loadTime.Seconds())) + "\n")
	infoBody.WriteString(labelStyle.Render("Database:    ") + valueStyle.Render(config.DBPath(cfg)) + "\n")
	infoBody.WriteString(labelStyle.Render("Config file: ") + valueStyle.Render(config.ConfigPath()))

	var b strings.Builder
	b.WriteString(components.ContentCard("Settings", formBody.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("General", infoBody.String(), cw))

	return b.String()
}
