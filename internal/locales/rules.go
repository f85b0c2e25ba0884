package locales

import (
	"embed"
	"fmt"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// MachineTranslation controls the translation pipeline for one locale
type MachineTranslation struct {
	Enabled     bool `yaml:"enabled"`
	AutoApprove bool `yaml:"auto_approve"`
}

// Locale is one entry of the locale rules file
type Locale struct {
	Code               string             `yaml:"code"`
	Name               string             `yaml:"name"`
	Enabled            bool               `yaml:"enabled"`
	MachineTranslation MachineTranslation `yaml:"machine_translation"`
}

type rulesFile struct {
	Origin  string   `yaml:"origin"`
	Locales []Locale `yaml:"locales"`
}

// Rules holds the origin locale and per-locale enablement.
// Immutable after construction; safe for concurrent use.
type Rules struct {
	origin  string
	locales []Locale
	byCode  map[string]Locale
}

// Load parses the embedded locale rules
func Load() (*Rules, error) {
	data, err := configFiles.ReadFile("config/locales.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read locales.yaml: %w", err)
	}
	return Parse(data)
}

// Parse builds rules from YAML
func Parse(data []byte) (*Rules, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal locale rules: %w", err)
	}
	return New(f.Origin, f.Locales...)
}

// New validates and builds rules. The origin must appear among the entries and be enabled.
func New(origin string, entries ...Locale) (*Rules, error) {
	r := &Rules{
		origin: origin,
		byCode: make(map[string]Locale, len(entries)),
	}

	for _, l := range entries {
		if _, err := language.Parse(l.Code); err != nil {
			return nil, fmt.Errorf("invalid locale code %q: %w", l.Code, err)
		}
		if _, dup := r.byCode[l.Code]; dup {
			return nil, fmt.Errorf("duplicate locale %q", l.Code)
		}
		if l.Code == origin {
			// The origin is never a translation target.
			l.MachineTranslation = MachineTranslation{}
		}
		r.byCode[l.Code] = l
		r.locales = append(r.locales, l)
	}

	o, ok := r.byCode[origin]
	if !ok {
		return nil, fmt.Errorf("origin locale %q is not listed", origin)
	}
	if !o.Enabled {
		return nil, fmt.Errorf("origin locale %q is disabled", origin)
	}

	return r, nil
}

// Origin returns the locale articles are authored in
func (r *Rules) Origin() string {
	return r.origin
}

func (r *Rules) IsOrigin(locale string) bool {
	return locale == r.origin
}

// IsEnabled reports whether documents may be created in the locale
func (r *Rules) IsEnabled(locale string) bool {
	l, ok := r.byCode[locale]
	return ok && l.Enabled
}

// Locales returns the entries in file order
func (r *Rules) Locales() []Locale {
	out := make([]Locale, len(r.locales))
	copy(out, r.locales)
	return out
}

// TranslationLocales returns enabled, non-origin locale codes in file order
func (r *Rules) TranslationLocales() []string {
	var codes []string
	for _, l := range r.locales {
		if l.Enabled && l.Code != r.origin {
			codes = append(codes, l.Code)
		}
	}
	return codes
}

func (r *Rules) MachineTranslationEnabled(locale string) bool {
	l, ok := r.byCode[locale]
	return ok && l.Enabled && l.MachineTranslation.Enabled
}

// AutoApproveMachineTranslation reports whether machine translations into the
// locale are approved without a human review
func (r *Rules) AutoApproveMachineTranslation(locale string) bool {
	return r.MachineTranslationEnabled(locale) && r.byCode[locale].MachineTranslation.AutoApprove
}

// Name returns the display name of a locale, or the code when unnamed
func (r *Rules) Name(locale string) string {
	if l, ok := r.byCode[locale]; ok && l.Name != "" {
		return l.Name
	}
	return locale
}
