package localization

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Localizer renders messages for one negotiated locale.
type Localizer struct {
	catalog *Catalog
	locale  string
	printer *message.Printer
	base    *message.Printer
}

// NewLocalizer picks the catalog locale closest to lang. Unknown or empty
// languages get the base locale.
func NewLocalizer(c *Catalog, lang string) *Localizer {
	if c == nil {
		c = Default()
	}
	tag := c.tags[0]
	if requested, err := language.Parse(lang); err == nil {
		_, idx, conf := language.NewMatcher(c.tags).Match(requested)
		if conf != language.No {
			tag = c.tags[idx]
		}
	}
	return &Localizer{
		catalog: c,
		locale:  tag.String(),
		printer: message.NewPrinter(tag, message.Catalog(c.builder)),
		base:    message.NewPrinter(c.tags[0], message.Catalog(c.builder)),
	}
}

func (l *Localizer) Locale() string { return l.locale }

// Get returns the unformatted message, or code itself when undefined.
func (l *Localizer) Get(code string) string {
	if v, ok := l.catalog.Message(l.locale, code); ok {
		return v
	}
	return code
}

// Format renders code with args in the localizer's locale.
func (l *Localizer) Format(code string, args ...any) string {
	if _, ok := l.catalog.locales[l.locale][code]; ok {
		return l.printer.Sprintf(code, args...)
	}
	if _, ok := l.catalog.locales[BaseLocale][code]; ok {
		return l.base.Sprintf(code, args...)
	}
	return code
}
