package tui

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/davidschlachter/lychnos/internal/config"
	"github.com/davidschlachter/lychnos/internal/tui/theme"
)

// SetupValues holds the answers collected by the setup form.
type SetupValues struct {
	FireflyURL   string
	FireflyToken string
	TaxCategory  string
	Location     string
	Theme        string
}

// SetupValuesFrom seeds the form with the current configuration.
func SetupValuesFrom(cfg config.Config) SetupValues {
	return SetupValues{
		FireflyURL:   cfg.Firefly.URL,
		FireflyToken: cfg.Firefly.Token,
		TaxCategory:  cfg.General.TaxCategory,
		Location:     cfg.General.Location,
		Theme:        cfg.Appearance.Theme,
	}
}

// Apply copies the answers into cfg. A blank token keeps the existing one.
func (v SetupValues) Apply(cfg *config.Config) {
	cfg.Firefly.URL = strings.TrimRight(strings.TrimSpace(v.FireflyURL), "/")
	if tok := strings.TrimSpace(v.FireflyToken); tok != "" {
		cfg.Firefly.Token = tok
	}
	if tax := strings.TrimSpace(v.TaxCategory); tax != "" {
		cfg.General.TaxCategory = tax
	}
	cfg.General.Location = strings.TrimSpace(v.Location)
	if theme.Valid(v.Theme) {
		cfg.Appearance.Theme = v.Theme
	}
}

// NewSetupForm builds the first-run wizard writing into vals.
func NewSetupForm(vals *SetupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.Name))
	}

	tokenDesc := "Create one under Options → Profile → OAuth → Personal Access Tokens."
	if vals.FireflyToken != "" {
		tokenDesc = "Leave blank to keep the current token."
		vals.FireflyToken = ""
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to lychnos").
				Description("Budget pacing for Firefly III.\nA few settings and you're done."),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Firefly III URL").
				Placeholder("https://firefly.example.com").
				Value(&vals.FireflyURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Personal access token").
				Description(tokenDesc).
				EchoMode(huh.EchoModePassword).
				Value(&vals.FireflyToken),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Tax category").
				Description("Firefly category holding income tax payments.").
				Value(&vals.TaxCategory).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("tax category is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Time zone").
				Description("IANA name for month boundaries. Blank uses the system zone.").
				Placeholder("America/Toronto").
				Value(&vals.Location).
				Validate(validateLocation),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.Theme),
		),
	).WithShowHelp(true)
}

func validateURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("the Firefly URL is required")
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("URL must start with http:// or https://")
	}
	if u.Host == "" {
		return errors.New("URL is missing a host")
	}
	return nil
}

func validateLocation(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.LoadLocation(s); err != nil {
		return fmt.Errorf("unknown time zone %q", s)
	}
	return nil
}
