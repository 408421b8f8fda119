package markdown

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	headingImagePattern = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	headingLinkPattern  = regexp.MustCompile(`\[([^\]]*)\](?:\([^)]*\)|\[[^\]]*\])`)
	htmlTagPattern      = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// headingText reduces heading markdown to the text GitHub renders.
func headingText(text string) string {
	text = headingImagePattern.ReplaceAllString(text, "$1")
	text = headingLinkPattern.ReplaceAllString(text, "$1")
	text = htmlTagPattern.ReplaceAllString(text, "")
	text = strings.NewReplacer("`", "", "*", "", "~", "").Replace(text)
	return strings.TrimSpace(text)
}

func lowerCase(s string) string {
	return cases.Lower(language.Und).String(s)
}

// githubSlug lowercases text, drops punctuation and turns each whitespace
// character into a hyphen.
func githubSlug(text string) string {
	var b strings.Builder
	for _, r := range lowerCase(text) {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune('-')
		case r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsMark(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// slugger assigns unique anchors within one document: repeated headings
// get -1, -2, ... appended.
type slugger struct {
	occurrences map[string]int
}

func newSlugger() *slugger {
	return &slugger{occurrences: make(map[string]int)}
}

func (s *slugger) slug(text string) string {
	base := githubSlug(text)
	result := base
	for {
		if _, taken := s.occurrences[result]; !taken {
			break
		}
		s.occurrences[base]++
		result = base + "-" + strconv.Itoa(s.occurrences[base])
	}
	s.occurrences[result] = 0
	return result
}
