// Package localization resolves user-facing message codes to localized text.
package localization

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"
)

// BaseLocale is the fallback locale every catalog must define.
const BaseLocale = "en-US"

type catalogFile struct {
	Locale   string            `toml:"locale"`
	Messages map[string]string `toml:"messages"`
}

// Catalog holds messages for every loaded locale.
type Catalog struct {
	locales map[string]map[string]string
	tags    []language.Tag
	builder *catalog.Builder
}

//go:embed locales/*.toml
var embeddedLocales embed.FS

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog, loaded once per process.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := LoadFromFS(embeddedLocales)
		if err != nil {
			panic(fmt.Sprintf("localization: embedded catalogs invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// LoadFromFS reads every locales/*.toml file in fsys.
func LoadFromFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.toml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	files := make(map[string]map[string]string, len(paths))
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if _, err := toml.Decode(string(data), &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		locale := strings.TrimSpace(file.Locale)
		fromPath := strings.TrimSuffix(path.Base(p), path.Ext(p))
		if locale == "" {
			return nil, fmt.Errorf("catalog %s: locale is required", p)
		}
		if locale != fromPath {
			return nil, fmt.Errorf("catalog %s: locale %q must match file name %q", p, locale, fromPath)
		}
		if _, err := language.Parse(locale); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", p, err)
		}
		messages := make(map[string]string, len(file.Messages))
		for key, value := range file.Messages {
			key = strings.TrimSpace(key)
			if key == "" {
				return nil, fmt.Errorf("catalog %s: message key cannot be blank", p)
			}
			messages[key] = value
		}
		files[locale] = messages
	}
	return newCatalog(files)
}

func newCatalog(files map[string]map[string]string) (*Catalog, error) {
	base, ok := files[BaseLocale]
	if !ok {
		return nil, fmt.Errorf("base locale %s is not defined", BaseLocale)
	}
	for _, code := range RequiredCodes {
		if _, ok := base[code]; !ok {
			return nil, fmt.Errorf("base locale %s is missing %s", BaseLocale, code)
		}
	}

	baseTag := language.MustParse(BaseLocale)
	c := &Catalog{
		locales: files,
		tags:    []language.Tag{baseTag},
		builder: catalog.NewBuilder(catalog.Fallback(baseTag)),
	}
	for _, locale := range sortedKeys(files) {
		tag := language.MustParse(locale)
		if locale != BaseLocale {
			c.tags = append(c.tags, tag)
		}
		for _, key := range sortedKeys(files[locale]) {
			if err := c.builder.SetString(tag, key, files[locale][key]); err != nil {
				return nil, fmt.Errorf("register %s/%s: %w", locale, key, err)
			}
		}
	}
	return c, nil
}

// Locales returns the loaded locale identifiers, base first.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.tags))
	for _, tag := range c.tags {
		out = append(out, tag.String())
	}
	return out
}

// Message returns the raw text for code in locale, falling back to the base
// locale.
func (c *Catalog) Message(locale, code string) (string, bool) {
	if c == nil {
		return "", false
	}
	if msgs, ok := c.locales[locale]; ok {
		if v, ok := msgs[code]; ok {
			return v, true
		}
	}
	v, ok := c.locales[BaseLocale][code]
	return v, ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
