// Package i18n renders localized chat messages from embedded YAML catalogs.
package i18n

import (
	"embed"
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

// BaseLocale is the canonical source locale for catalogs.
const BaseLocale = "en-US"

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

//go:embed locales/*.yaml
var embeddedFS embed.FS

// Bundle holds the messages of every locale.
type Bundle struct {
	locales map[string]map[string]string
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedFS)
}

// LoadFromFS loads locales/*.yaml from fsys. The file name must match the
// declared locale and the base locale must be present.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{locales: map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}

		locale := strings.TrimSpace(file.Locale)
		fromPath := strings.TrimSuffix(path.Base(p), path.Ext(p))
		if locale != fromPath {
			return nil, fmt.Errorf("catalog %s: locale %q must match file name %q", p, locale, fromPath)
		}
		if len(file.Messages) == 0 {
			return nil, fmt.Errorf("catalog %s: messages map is required", p)
		}
		b.locales[locale] = file.Messages
	}

	if _, ok := b.locales[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	return b, nil
}

// Locales returns all available locale identifiers.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.locales))
	for locale := range b.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Missing returns base locale keys that locale does not define.
func (b *Bundle) Missing(locale string) []string {
	msgs := b.locales[locale]
	var out []string
	for key := range b.locales[BaseLocale] {
		if _, ok := msgs[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Translator formats messages for one locale, falling back to the base locale.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// NewTranslator picks the closest available locale to the requested one.
func (b *Bundle) NewTranslator(locale string) (*Translator, error) {
	base := language.MustParse(BaseLocale)
	builder := catalog.NewBuilder(catalog.Fallback(base))

	tags := []language.Tag{base}
	for _, name := range b.Locales() {
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("parse locale tag %q: %w", name, err)
		}
		if name != BaseLocale {
			tags = append(tags, tag)
		}
		for key, msg := range b.locales[name] {
			if err := builder.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("register %s/%s: %w", name, key, err)
			}
		}
	}

	want := base
	if locale != "" {
		parsed, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", locale, err)
		}
		want = parsed
	}
	_, idx, _ := language.NewMatcher(tags).Match(want)
	tag := tags[idx]

	return &Translator{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builder)),
	}, nil
}

// New loads the embedded catalogs and returns a Translator for locale.
func New(locale string) (*Translator, error) {
	b, err := LoadEmbedded()
	if err != nil {
		return nil, err
	}
	return b.NewTranslator(locale)
}

// T formats the message registered under key.
func (t *Translator) T(key string, args ...any) string {
	return t.printer.Sprintf(key, args...)
}

// Locale returns the selected locale tag.
func (t *Translator) Locale() string {
	return t.tag.String()
}
