// Package i18n localizes catalog keys such as "KNW.Warfare.Commander.None"
// using golang.org/x/text message catalogs built from embedded YAML.
//
// Format substitutes named "{placeholder}" arguments after lookup, so
// translations may reorder them freely.
package i18n

import (
	"bytes"
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

// BaseLocale is the locale every other catalog falls back to.
const BaseLocale = "en-US"

//go:embed locales/*.yaml
var embedded embed.FS

// Localizer resolves catalog keys to display text.
type Localizer interface {
	Localize(key string) string
	Format(key string, args map[string]string) string
}

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog is a Localizer for one locale.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
	keys    map[string]struct{}
}

// Load builds the catalog for locale from the embedded locale files.
//
// Precondition: locale must be a BCP 47 tag.
// Postcondition: Keys missing from locale resolve to the BaseLocale text.
// Keys absent from BaseLocale are ignored.
func Load(locale string) (*Catalog, error) {
	return LoadFS(embedded, locale)
}

// LoadFS builds the catalog for locale from locales/*.yaml in fsys.
func LoadFS(fsys fs.FS, locale string) (*Catalog, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parsing locale %q: %w", locale, err)
	}
	files, err := readLocales(fsys)
	if err != nil {
		return nil, err
	}
	base, ok := files[BaseLocale]
	if !ok {
		return nil, fmt.Errorf("base locale %s is not defined", BaseLocale)
	}

	builder := catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale)))
	keys := make(map[string]struct{}, len(base.Messages))
	for _, f := range files {
		ft, err := language.Parse(f.Locale)
		if err != nil {
			return nil, fmt.Errorf("parsing catalog locale %q: %w", f.Locale, err)
		}
		for key, msg := range base.Messages {
			if local, ok := f.Messages[key]; ok {
				msg = local
			}
			if err := builder.SetString(ft, key, escapePercent(msg)); err != nil {
				return nil, fmt.Errorf("registering %s %s: %w", f.Locale, key, err)
			}
			keys[key] = struct{}{}
		}
	}

	langs := builder.Languages()
	_, idx, _ := language.NewMatcher(langs).Match(tag)
	matched := langs[idx]
	return &Catalog{
		tag:     matched,
		printer: message.NewPrinter(matched, message.Catalog(builder)),
		keys:    keys,
	}, nil
}

func readLocales(fsys fs.FS) (map[string]localeFile, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("listing locale files: %w", err)
	}
	sort.Strings(paths)
	out := make(map[string]localeFile, len(paths))
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		var f localeFile
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", p, err)
		}
		want := strings.TrimSuffix(path.Base(p), path.Ext(p))
		if f.Locale != want {
			return nil, fmt.Errorf("%s: locale %q must match file name %q", p, f.Locale, want)
		}
		out[f.Locale] = f
	}
	return out, nil
}

// escapePercent keeps literal percent signs intact through the printf-based printer.
func escapePercent(s string) string { return strings.ReplaceAll(s, "%", "%%") }

// Locale returns the matched locale tag.
func (c *Catalog) Locale() string { return c.tag.String() }

// Has reports whether key is defined in any loaded locale.
func (c *Catalog) Has(key string) bool {
	_, ok := c.keys[key]
	return ok
}

// Localize returns the text for key, or key itself when undefined.
func (c *Catalog) Localize(key string) string {
	if !c.Has(key) {
		return key
	}
	return c.printer.Sprintf(key)
}

// Format localizes key and substitutes each {name} placeholder from args.
// Unknown placeholders are left as written.
func (c *Catalog) Format(key string, args map[string]string) string {
	text := c.Localize(key)
	if len(args) == 0 {
		return text
	}
	pairs := make([]string, 0, len(args)*2)
	for k, v := range args {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
