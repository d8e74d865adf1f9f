package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leonardotrapani/tsukkomi/internal/config"
	"github.com/leonardotrapani/tsukkomi/internal/facilitation"
	"github.com/leonardotrapani/tsukkomi/internal/language"
	"github.com/leonardotrapani/tsukkomi/internal/provider"
	"github.com/leonardotrapani/tsukkomi/internal/session"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// providerDisplayNames maps provider IDs to human-readable names
var providerDisplayNames = map[string]string{
	provider.ProviderOpenAI: "OpenAI",
	provider.ProviderGroq:   "Groq",
}

// formValues is what the form edits. Strings keep huh inputs simple.
type formValues struct {
	Language      string
	Mode          string
	Interval      string
	Provider      string
	Model         string
	OpenAIKey     string
	GroqKey       string
	Notifications string
}

func valuesFromConfig(cfg *config.Config) formValues {
	notifications := cfg.Notifications.Type
	if !cfg.Notifications.Enabled {
		notifications = "none"
	}
	return formValues{
		Language:      cfg.General.Language,
		Mode:          cfg.Facilitation.Mode,
		Interval:      cfg.Facilitation.Interval.String(),
		Provider:      cfg.Facilitation.Provider,
		Model:         cfg.Facilitation.Model,
		OpenAIKey:     cfg.Providers[provider.ProviderOpenAI].APIKey,
		GroqKey:       cfg.Providers[provider.ProviderGroq].APIKey,
		Notifications: notifications,
	}
}

// apply returns a copy of cfg with the form values written over it.
func (v formValues) apply(cfg *config.Config) (*config.Config, error) {
	interval, err := parseInterval(v.Interval)
	if err != nil {
		return nil, err
	}

	out := *cfg
	out.Providers = make(map[string]config.ProviderConfig, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		out.Providers[name] = pc
	}

	out.General.Language = v.Language
	out.Facilitation.Mode = v.Mode
	out.Facilitation.Interval = interval
	if v.Provider != cfg.Facilitation.Provider && v.Model == cfg.Facilitation.Model {
		out.Facilitation.Model = ""
	} else {
		out.Facilitation.Model = strings.TrimSpace(v.Model)
	}
	out.Facilitation.Provider = v.Provider

	setKey(out.Providers, provider.ProviderOpenAI, v.OpenAIKey)
	setKey(out.Providers, provider.ProviderGroq, v.GroqKey)

	if v.Notifications == "none" {
		out.Notifications.Enabled = false
	} else {
		out.Notifications.Enabled = true
		out.Notifications.Type = v.Notifications
	}
	return &out, nil
}

func setKey(providers map[string]config.ProviderConfig, name, key string) {
	key = strings.TrimSpace(key)
	if key == "" {
		delete(providers, name)
		return
	}
	providers[name] = config.ProviderConfig{APIKey: key}
}

func parseInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: use a duration like 60s or 2m", s)
	}
	if d < session.MinInterval {
		return 0, fmt.Errorf("interval must be at least %s", session.MinInterval)
	}
	return d, nil
}

func validateKey(name string) func(string) error {
	return func(key string) error {
		key = strings.TrimSpace(key)
		if key == "" {
			return nil
		}
		if p := provider.GetProvider(name); p != nil && !p.ValidateAPIKey(key) {
			return fmt.Errorf("that does not look like a %s key", providerDisplayNames[name])
		}
		return nil
	}
}

func languageOptions() []huh.Option[string] {
	langs := language.List()
	opts := make([]huh.Option[string], 0, len(langs)+1)
	for _, l := range langs {
		opts = append(opts, huh.NewOption(l.Label(), l.Code))
	}
	return append(opts, huh.NewOption(language.Auto.Name, language.Auto.Code))
}

func providerOptions() []huh.Option[string] {
	var opts []huh.Option[string]
	for _, name := range provider.ListProviders() {
		label := providerDisplayNames[name]
		if label == "" {
			label = name
		}
		opts = append(opts, huh.NewOption(label, name))
	}
	return opts
}

func buildForm(v *formValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Meeting language").
				Description("Used for transcription and for the replies").
				Options(languageOptions()...).
				Height(8).
				Value(&v.Language),
			huh.NewSelect[string]().
				Title("Persona").
				Options(
					huh.NewOption(facilitation.ModeAssertive.Label()+" (assertive)", string(facilitation.ModeAssertive)),
					huh.NewOption(facilitation.ModeGentle.Label()+" (gentle)", string(facilitation.ModeGentle)),
				).
				Value(&v.Mode),
			huh.NewInput().
				Title("Interjection interval").
				Description(fmt.Sprintf("Minimum time between interjections (at least %s)", session.MinInterval)).
				Validate(func(s string) error { _, err := parseInterval(s); return err }).
				Value(&v.Interval),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Facilitation provider").
				Description("Transcription always uses OpenAI").
				Options(providerOptions()...).
				Value(&v.Provider),
			huh.NewInput().
				Title("Model").
				Description("Leave empty for the provider default").
				Value(&v.Model),
			huh.NewInput().
				Title("OpenAI API key").
				Description("Empty falls back to " + provider.EnvOpenAIKey).
				EchoMode(huh.EchoModePassword).
				Validate(validateKey(provider.ProviderOpenAI)).
				Value(&v.OpenAIKey),
			huh.NewInput().
				Title("Groq API key").
				Description("Only needed when Groq is the provider").
				EchoMode(huh.EchoModePassword).
				Validate(validateKey(provider.ProviderGroq)).
				Value(&v.GroqKey),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Notifications").
				Options(
					huh.NewOption("Desktop (notify-send)", "desktop"),
					huh.NewOption("Log only", "log"),
					huh.NewOption("None", "none"),
				).
				Value(&v.Notifications),
		),
	).WithTheme(getTheme())
}

// Run opens the configuration form on top of existing. The returned config
// has not been saved.
func Run(existing *config.Config) (*ConfigureResult, error) {
	if existing == nil {
		existing = config.DefaultConfig()
	}

	clearScreen()
	fmt.Println(Logo())
	fmt.Println()

	values := valuesFromConfig(existing)
	if err := buildForm(&values).Run(); err != nil {
		return &ConfigureResult{Cancelled: true}, nil
	}

	cfg, err := values.apply(existing)
	if err != nil {
		return nil, err
	}

	save := true
	confirm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save configuration?").
				Description(summarize(cfg)).
				Affirmative("Save").
				Negative("Discard").
				Value(&save),
		),
	).WithTheme(getTheme())
	if err := confirm.Run(); err != nil || !save {
		return &ConfigureResult{Cancelled: true}, nil
	}
	return &ConfigureResult{Config: cfg}, nil
}

func summarize(cfg *config.Config) string {
	lang := cfg.General.Language
	if l, ok := language.Lookup(lang); ok {
		lang = l.Label()
	}
	persona := facilitation.Mode(cfg.Facilitation.Mode).Label()
	model := cfg.Facilitation.Model
	if model == "" {
		model = "default model"
	}
	notifications := "off"
	if cfg.Notifications.Enabled {
		notifications = cfg.Notifications.Type
	}
	return strings.Join([]string{
		"Language:      " + lang,
		"Persona:       " + persona,
		"Interval:      " + cfg.Facilitation.Interval.String(),
		"Provider:      " + cfg.Facilitation.Provider + " / " + model,
		"Notifications: " + notifications,
	}, "\n")
}

func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
