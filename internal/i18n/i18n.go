// Package i18n negotiates request locales and serves translated messages.
package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

//go:embed locales
var localeFS embed.FS

// Namespaces shipped with the binary. Keys are addressed as
// "<namespace>.<key>".
var Namespaces = []string{"common", "page-plant-entry", "page-top-stories"}

// ErrNoLocales is returned when Load is called with an empty locale set.
var ErrNoLocales = errors.New("i18n: no locales configured")

// Bundle holds the message catalog for the configured locales.
type Bundle struct {
	locales       []string
	tags          []language.Tag
	defaultLocale string
	matcher       language.Matcher
	catalog       *catalog.Builder
}

// Load parses the embedded translation files for locales. Messages missing
// from a locale fall back to the default locale's.
func Load(locales []string, defaultLocale string) (*Bundle, error) {
	return LoadFS(localeFS, "locales", locales, defaultLocale)
}

// LoadFS is Load over an arbitrary file tree laid out as
// root/<locale>/<namespace>.yaml.
func LoadFS(fsys fs.FS, root string, locales []string, defaultLocale string) (*Bundle, error) {
	if len(locales) == 0 {
		return nil, ErrNoLocales
	}

	tags := make([]language.Tag, 0, len(locales))
	defaultIndex := -1
	for i, l := range locales {
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", l, err)
		}
		tags = append(tags, tag)
		if l == defaultLocale {
			defaultIndex = i
		}
	}
	if defaultIndex < 0 {
		return nil, fmt.Errorf("default locale %q is not one of %v", defaultLocale, locales)
	}

	// The matcher prefers its first tag when nothing matches.
	ordered := append([]language.Tag{tags[defaultIndex]}, tags...)

	b := &Bundle{
		locales:       append([]string(nil), locales...),
		tags:          tags,
		defaultLocale: defaultLocale,
		matcher:       language.NewMatcher(ordered),
		catalog:       catalog.NewBuilder(catalog.Fallback(tags[defaultIndex])),
	}

	defaults := make(map[string]map[string]string, len(Namespaces))
	for _, ns := range Namespaces {
		messages, err := readMessages(fsys, path.Join(root, defaultLocale, ns+".yaml"))
		if err != nil {
			return nil, err
		}
		defaults[ns] = messages
	}

	for i, locale := range locales {
		for _, ns := range Namespaces {
			messages := defaults[ns]
			if locale != defaultLocale {
				own, err := readMessages(fsys, path.Join(root, locale, ns+".yaml"))
				if err != nil && !errors.Is(err, fs.ErrNotExist) {
					return nil, err
				}
				messages = merge(defaults[ns], own)
			}
			for _, key := range sortedKeys(messages) {
				if err := b.catalog.SetString(tags[i], ns+"."+key, messages[key]); err != nil {
					return nil, fmt.Errorf("set message %s.%s for %s: %w", ns, key, locale, err)
				}
			}
		}
	}

	return b, nil
}

func readMessages(fsys fs.FS, name string) (map[string]string, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	var messages map[string]string
	if err := yaml.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return messages, nil
}

// merge overlays own on base; keys missing from own keep the base message.
func merge(base, own map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(own))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range own {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Locales returns the configured locales in order.
func (b *Bundle) Locales() []string {
	return append([]string(nil), b.locales...)
}

// Default returns the default locale.
func (b *Bundle) Default() string {
	return b.defaultLocale
}

// IsLocale reports whether segment names a configured locale exactly, as used
// for path prefixes.
func (b *Bundle) IsLocale(segment string) bool {
	for _, l := range b.locales {
		if strings.EqualFold(l, segment) {
			return true
		}
	}
	return false
}

// Match returns the configured locale closest to raw, which may be a single
// tag or an Accept-Language header value. The default locale is returned when
// nothing is close enough.
func (b *Bundle) Match(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return b.defaultLocale
	}

	for _, l := range b.locales {
		if strings.EqualFold(l, raw) {
			return l
		}
	}

	desired, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(desired) == 0 {
		return b.defaultLocale
	}
	_, index, confidence := b.matcher.Match(desired...)
	if confidence == language.No || index == 0 {
		return b.defaultLocale
	}
	return b.locales[index-1]
}

// Translator prints messages for one locale.
type Translator struct {
	locale  string
	printer *message.Printer
}

// Translator returns a printer for locale, falling back to the default
// locale for unknown values.
func (b *Bundle) Translator(locale string) *Translator {
	for i, l := range b.locales {
		if l == locale {
			return &Translator{locale: l, printer: message.NewPrinter(b.tags[i], message.Catalog(b.catalog))}
		}
	}
	return b.Translator(b.defaultLocale)
}

// Locale returns the locale this translator prints for.
func (t *Translator) Locale() string {
	return t.locale
}

// Text returns the message for key, formatted with args. Unknown keys are
// returned as given.
func (t *Translator) Text(key string, args ...any) string {
	return t.printer.Sprintf(key, args...)
}
