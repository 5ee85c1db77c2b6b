// Package labels holds the English and Hebrew display strings of the console.
package labels

import (
	"golang.org/x/text/language"

	"github.com/vbonduro/librarydesk/internal/domain"
)

const (
	English = "en"
	Hebrew  = "he"
)

// Default is the language the library operates in.
const Default = Hebrew

var tables = map[string]map[string]string{
	English: english,
	Hebrew:  hebrew,
}

var matcher = language.NewMatcher([]language.Tag{language.Hebrew, language.English})

// Labels is the string table of one language.
type Labels struct {
	lang  string
	table map[string]string
}

// For returns the table for lang, falling back to Default for unknown codes.
func For(lang string) Labels {
	t, ok := tables[lang]
	if !ok {
		lang = Default
		t = tables[lang]
	}
	return Labels{lang: lang, table: t}
}

func (l Labels) Language() string {
	return l.lang
}

// Get returns the label for key, then the English label, then the key itself.
func (l Labels) Get(key string) string {
	if v, ok := l.table[key]; ok {
		return v
	}
	if v, ok := english[key]; ok {
		return v
	}
	return key
}

// Direction is the text direction of the language, "rtl" or "ltr".
func (l Labels) Direction() string {
	if l.lang == Hebrew {
		return "rtl"
	}
	return "ltr"
}

func (l Labels) CoverType(c domain.CoverType) string {
	switch c {
	case domain.CoverSoft:
		return l.Get("soft_cover")
	case domain.CoverHard:
		return l.Get("hard_cover")
	case domain.CoverRigid:
		return l.Get("rigid_pages")
	case domain.CoverBattery:
		return l.Get("battery_book")
	default:
		return string(c)
	}
}

func (l Labels) Condition(c domain.Condition) string {
	switch c {
	case domain.ConditionNew:
		return l.Get("new")
	case domain.ConditionGood:
		return l.Get("good")
	case domain.ConditionWorn:
		return l.Get("worn")
	default:
		return string(c)
	}
}

func (l Labels) LoanStatus(s domain.LoanStatus) string {
	switch s {
	case domain.LoanStatusAvailable:
		return l.Get("available")
	case domain.LoanStatusBorrowed:
		return l.Get("borrowed")
	default:
		return string(s)
	}
}

// Toggle flips between English and Hebrew.
func Toggle(lang string) string {
	if lang == English {
		return Hebrew
	}
	return English
}

// Supported reports whether lang has a string table.
func Supported(lang string) bool {
	_, ok := tables[lang]
	return ok
}

// Detect picks a supported language from locale or Accept-Language strings
// such as "he_IL.UTF-8" or "en-US,en;q=0.9". Empty candidates are skipped and
// Default is returned when nothing matches.
func Detect(candidates ...string) string {
	var accepted []string
	for _, c := range candidates {
		if c == "" || c == "C" || c == "POSIX" {
			continue
		}
		accepted = append(accepted, normaliseLocale(c))
	}
	if len(accepted) == 0 {
		return Default
	}
	tag, _, confidence := matcher.Match(parseAll(accepted)...)
	if confidence == language.No {
		return Default
	}
	base, _ := tag.Base()
	if Supported(base.String()) {
		return base.String()
	}
	return Default
}

func parseAll(accepted []string) []language.Tag {
	var tags []language.Tag
	for _, a := range accepted {
		parsed, _, err := language.ParseAcceptLanguage(a)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	return tags
}

// normaliseLocale turns a POSIX locale ("he_IL.UTF-8") into a BCP 47 tag.
func normaliseLocale(s string) string {
	for i, r := range s {
		if r == '.' || r == '@' {
			s = s[:i]
			break
		}
	}
	out := []byte(s)
	for i, b := range out {
		if b == '_' {
			out[i] = '-'
		}
	}
	return string(out)
}
