package cmd

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/davidschlachter/lychnos/internal/config"
	"github.com/davidschlachter/lychnos/internal/tui"
	"github.com/davidschlachter/lychnos/internal/tui/theme"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	// Load config for theme
	cfg, _ := config.Load()
	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	// The dashboard owns the terminal, so cache logs are discarded.
	var opened []*app
	connect := func(cfg config.Config) (tui.Reporter, tui.Resetter, error) {
		a, err := newApp(cfg, newLogger(cfg, io.Discard, false))
		if err != nil {
			return nil, nil, err
		}
		opened = append(opened, a)
		if a.cache == nil {
			return a.reports, nil, nil
		}
		return a.reports, a.cache, nil
	}
	defer func() {
		for _, a := range opened {
			a.Close()
		}
	}()

	p := tea.NewProgram(tui.NewApp(connect, flagBudget), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
