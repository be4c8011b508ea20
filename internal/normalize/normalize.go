package normalize

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"skywatch.earth/skywatch/internal/db"
	"skywatch.earth/skywatch/internal/langdetect"
)

const dateUnknown = "unknown"

// Normalized is the canonical comparison form of a report. It is produced by a
// pure, total transformation: missing fields become empty values, never errors.
type Normalized struct {
	ReportID      int64
	Title         string
	TitleTrigrams map[string]struct{}
	Description   string
	Tokens        []string
	TokenSet      map[string]struct{}
	Language      string
	City          string
	State         string
	Country       string
	LocationKey   string
	Latitude      *float64
	Longitude     *float64
	EventDate     *time.Time
	DatePrecision string
	EventDateISO  string
}

// Report canonicalizes a report into its comparison form. Applying it to an
// already-normalized report yields the same result.
func Report(r *db.Report) Normalized {
	if r == nil {
		return Normalized{EventDateISO: dateUnknown, DatePrecision: dateUnknown}
	}

	title := Text(r.Title)
	description := Text(r.Description)
	language := langdetect.DetectISO6391(r.Description)

	city := Text(r.City)
	state := Text(r.State)
	country := Text(r.Country)

	precision := strings.ToLower(strings.TrimSpace(r.EventDatePrecision))
	if precision == "" || r.EventDate == nil {
		precision = dateUnknown
	}

	dateISO := dateUnknown
	var eventDate *time.Time
	if r.EventDate != nil && precision != dateUnknown {
		utc := r.EventDate.UTC()
		eventDate = &utc
		dateISO = utc.Format("2006-01-02")
	}

	tokens := Tokens(description, language)

	n := Normalized{
		ReportID:      r.ReportID,
		Title:         title,
		TitleTrigrams: TrigramSet(title),
		Description:   description,
		Tokens:        tokens,
		TokenSet:      toSet(tokens),
		Language:      language,
		City:          city,
		State:         state,
		Country:       country,
		LocationKey:   locationKey(city, state, country),
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		EventDate:     eventDate,
		DatePrecision: precision,
		EventDateISO:  dateISO,
	}
	return n
}

// HasCoordinates reports whether both latitude and longitude are present.
func (n Normalized) HasCoordinates() bool {
	return n.Latitude != nil && n.Longitude != nil
}

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Text lowercases, folds diacritics, strips punctuation, and collapses
// whitespace. Every step is stable on its own output, so Text(Text(s)) == Text(s).
func Text(input string) string {
	lowered := strings.ToLower(strings.TrimSpace(input))
	if lowered == "" {
		return ""
	}

	folded, _, err := transform.String(diacriticFolder, lowered)
	if err != nil {
		folded = lowered
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			lastSpace = false
		case lastSpace:
			// swallow runs of separators and punctuation
		default:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens splits normalized text into word tokens with stopwords removed.
// Unrecognized languages fall back to the English stopword list.
func Tokens(text, language string) []string {
	normalized := Text(text)
	if normalized == "" {
		return nil
	}

	stop := stopwordsFor(language)
	parts := strings.Fields(normalized)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) < 2 {
			continue
		}
		if _, skip := stop[p]; skip {
			continue
		}
		tokens = append(tokens, p)
	}
	return tokens
}

// TrigramSet returns the set of contiguous 3-rune substrings of the normalized
// input. Strings shorter than three runes yield a single-element set.
func TrigramSet(text string) map[string]struct{} {
	normalized := Text(text)
	if normalized == "" {
		return nil
	}

	runes := []rune(normalized)
	if len(runes) < 3 {
		return map[string]struct{}{string(runes): {}}
	}

	set := make(map[string]struct{}, len(runes)-2)
	for i := 0; i <= len(runes)-3; i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

func locationKey(city, state, country string) string {
	if city == "" && state == "" && country == "" {
		return ""
	}
	return city + "|" + state + "|" + country
}

func toSet(tokens []string) map[string]struct{} {
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

var stopwordsEN = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "had": {}, "has": {}, "have": {},
	"he": {}, "her": {}, "his": {}, "i": {}, "in": {}, "is": {}, "it": {},
	"its": {}, "my": {}, "of": {}, "on": {}, "or": {}, "our": {}, "she": {},
	"that": {}, "the": {}, "their": {}, "then": {}, "there": {}, "they": {},
	"this": {}, "to": {}, "was": {}, "we": {}, "were": {}, "with": {}, "you": {},
}

var stopwordsES = map[string]struct{}{
	"de": {}, "la": {}, "el": {}, "en": {}, "y": {}, "que": {}, "los": {},
	"las": {}, "un": {}, "una": {}, "por": {}, "con": {}, "del": {}, "se": {},
	"su": {}, "para": {}, "es": {}, "al": {}, "lo": {}, "como": {},
}

func stopwordsFor(language string) map[string]struct{} {
	switch language {
	case "es":
		return stopwordsES
	default:
		return stopwordsEN
	}
}
