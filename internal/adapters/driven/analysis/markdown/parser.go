package markdown

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/custodia-labs/linkcheck/internal/core/domain"
)

var (
	fenceOpenPattern    = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})(.*)$")
	atxHeadingPattern   = regexp.MustCompile(`^ {0,3}#{1,6}(?:[ \t]+(.*?))?(?:[ \t]+#+)?[ \t]*$`)
	setextPattern       = regexp.MustCompile(`^ {0,3}(?:=+|-+)[ \t]*$`)
	listItemPattern     = regexp.MustCompile(`^ {0,3}(?:[-*+]|\d{1,9}[.)])(?:[ \t]|$)`)
	definitionPattern   = regexp.MustCompile(`^ {0,3}\[((?:[^\]\\]|\\.)+)\]:[ \t]*(<[^>]*>|\S+)(?:[ \t]+(?:"[^"]*"|'[^']*'|\([^)]*\)))?[ \t]*$`)
	htmlAnchorPattern   = regexp.MustCompile(`(?i)<a\s[^>]*?\b(?:name|id)\s*=\s*["']([^"']+)["']`)
	autolinkPattern     = regexp.MustCompile(`^<([a-zA-Z][a-zA-Z0-9+.-]{1,31}:[^\s<>]*)>`)
	lineFragmentPattern = regexp.MustCompile(`^L\d+(?:-L\d+)?$`)
)

// linkItem is a link as found by the parser.
type linkItem struct {
	domain.Link

	// rawLabel is the reference label as written.
	rawLabel string

	// shortcut marks [label] references, which are only links when
	// a definition for label exists.
	shortcut bool
}

// parsedDoc is the link structure of one document.
type parsedDoc struct {
	items   []linkItem
	defs    map[string]linkItem
	anchors map[string]struct{}
}

// normalizeLabel matches reference labels case-insensitively with
// internal whitespace collapsed.
func normalizeLabel(label string) string {
	return cases.Fold().String(strings.Join(strings.Fields(label), " "))
}

// hasAnchor reports whether fragment names a heading or explicit anchor.
// An empty fragment and GitHub line fragments (#L10, #L10-L20) always match.
func (p *parsedDoc) hasAnchor(fragment string) bool {
	if fragment == "" || lineFragmentPattern.MatchString(fragment) {
		return true
	}
	if decoded, err := url.PathUnescape(fragment); err == nil {
		fragment = decoded
	}
	if _, ok := p.anchors[fragment]; ok {
		return true
	}
	_, ok := p.anchors[lowerCase(fragment)]
	return ok
}

func parse(content string) *parsedDoc {
	p := &parsedDoc{
		defs:    make(map[string]linkItem),
		anchors: make(map[string]struct{}),
	}
	slugs := newSlugger()

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	var (
		fence      string
		inComment  bool
		inCode     bool
		inList     bool
		blankAbove = true
		paragraph  = -1
		open       *block
	)

	// flush scans the open paragraph or list item as one inline run.
	flush := func() {
		if open != nil {
			p.scanInline(open.join())
			open = nil
		}
	}

	for i, raw := range lines {
		if fence != "" {
			if closesFence(raw, fence) {
				fence = ""
			}
			continue
		}

		afterBlank := blankAbove
		blankAbove = false

		if !inComment && strings.TrimSpace(raw) != "" && indentWidth(raw) >= 4 {
			// Indented code cannot interrupt a paragraph and does not
			// start inside a list, where indentation means continuation.
			if inCode || (open == nil && !inList) {
				inCode = true
				continue
			}
		}

		if m := fenceOpenPattern.FindStringSubmatch(raw); m != nil && !inComment {
			if m[1][0] != '`' || !strings.Contains(m[2], "`") {
				flush()
				fence = m[1]
				inCode = false
				paragraph = -1
				continue
			}
		}

		var line string
		line, inComment = maskComments(raw, inComment)

		if strings.TrimSpace(line) == "" {
			flush()
			blankAbove = true
			paragraph = -1
			continue
		}
		inCode = false

		isItem := listItemPattern.MatchString(line)
		switch {
		case isItem:
			inList = true
		case afterBlank && indentWidth(line) < 2:
			inList = false
		}

		for _, m := range htmlAnchorPattern.FindAllStringSubmatch(line, -1) {
			p.anchors[m[1]] = struct{}{}
		}

		if setextPattern.MatchString(line) {
			if paragraph >= 0 {
				p.addHeading(slugs, strings.Join(lines[paragraph:i], " "))
			}
			flush()
			paragraph = -1
			continue
		}

		if m := atxHeadingPattern.FindStringSubmatch(line); m != nil {
			flush()
			p.addHeading(slugs, m[1])
			p.scanInline(singleLine(i, raw, line))
			paragraph = -1
			continue
		}

		if m := definitionPattern.FindStringSubmatchIndex(line); m != nil {
			flush()
			p.addDefinition(i, raw, m)
			paragraph = -1
			continue
		}

		switch {
		case isItem:
			flush()
			open = &block{line: i}
			paragraph = -1
		case open == nil:
			open = &block{line: i}
			paragraph = i
		case paragraph < 0:
			paragraph = i
		}
		open.add(raw, line)
	}
	flush()

	return p
}

// block collects the lines of a paragraph or list item so that links
// whose text wraps onto the next line are still found.
type block struct {
	line   int
	raw    []string
	masked []string
}

func (b *block) add(raw, masked string) {
	b.raw = append(b.raw, raw)
	b.masked = append(b.masked, masked)
}

func (b *block) join() *inlineText {
	t := &inlineText{
		line: b.line,
		raw:  strings.Join(b.raw, "\n"),
		text: strings.Join(b.masked, "\n"),
	}
	offset := 0
	for _, l := range b.raw {
		t.starts = append(t.starts, offset)
		offset += len(l) + 1
	}
	return t
}

// inlineText is the text scanned for links. raw is the original text and
// is used for positions; text is the same text with comments masked.
// starts holds the byte offset of each line.
type inlineText struct {
	line   int
	raw    string
	text   string
	starts []int
}

func singleLine(lineNo int, raw, masked string) *inlineText {
	return &inlineText{line: lineNo, raw: raw, text: masked, starts: []int{0}}
}

func (t *inlineText) position(offset int) domain.Position {
	n := sort.Search(len(t.starts), func(i int) bool { return t.starts[i] > offset }) - 1
	return domain.Position{
		Line:      t.line + n,
		Character: utf8.RuneCountInString(t.raw[t.starts[n]:offset]),
	}
}

func (t *inlineText) rangeOf(start, end int) domain.Range {
	return domain.Range{Start: t.position(start), End: t.position(end)}
}

// indentWidth returns the leading whitespace width with tabs stopping
// at multiples of four.
func indentWidth(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4 - width%4
		default:
			return width
		}
	}
	return width
}

func (p *parsedDoc) addHeading(slugs *slugger, text string) {
	p.anchors[slugs.slug(headingText(text))] = struct{}{}
}

func (p *parsedDoc) addDefinition(lineNo int, raw string, m []int) {
	rawLabel := raw[m[2]:m[3]]
	start, end := m[4], m[5]
	if raw[start] == '<' {
		start, end = start+1, end-1
	}

	item := linkItem{
		Link: domain.Link{
			Range: singleLine(lineNo, raw, raw).rangeOf(start, end),
			Href:  raw[start:end],
			Kind:  domain.LinkDefinition,
			Label: normalizeLabel(rawLabel),
		},
		rawLabel: rawLabel,
	}
	p.items = append(p.items, item)

	if _, exists := p.defs[item.Label]; !exists {
		p.defs[item.Label] = item
	}
}

// scanInline finds the links in t. Line breaks may fall inside link
// text and reference labels.
func (p *parsedDoc) scanInline(t *inlineText) {
	line := maskCodeSpans(t.text)

	// jumps skip a link's destination or label once its text is scanned,
	// so nested images are found but [a][b] does not also yield [b].
	jumps := make(map[int]int)

	for i := 0; i < len(line); i++ {
		if to, ok := jumps[i]; ok {
			i = to - 1
			continue
		}

		switch line[i] {
		case '\\':
			i++
		case '<':
			if m := autolinkPattern.FindStringSubmatch(line[i:]); m != nil {
				p.items = append(p.items, linkItem{Link: domain.Link{
					Range: t.rangeOf(i+1, i+1+len(m[1])),
					Href:  m[1],
					Kind:  domain.LinkAutolink,
				}})
				i += len(m[0]) - 1
			}
		case '[':
			p.scanBracket(t, line, i, jumps)
		}
	}
}

func (p *parsedDoc) scanBracket(t *inlineText, line string, start int, jumps map[int]int) {
	closing := matchBracket(line, start)
	if closing < 0 {
		return
	}
	text := line[start+1 : closing]
	if strings.HasPrefix(text, "^") {
		// footnote
		return
	}

	next := closing + 1
	if next < len(line) && line[next] == '(' {
		if hrefStart, hrefEnd, end, ok := parseDestination(line, next); ok {
			kind := domain.LinkInline
			if start > 0 && line[start-1] == '!' {
				kind = domain.LinkImage
			}
			p.items = append(p.items, linkItem{Link: domain.Link{
				Range: t.rangeOf(hrefStart, hrefEnd),
				Href:  line[hrefStart:hrefEnd],
				Kind:  kind,
			}})
			jumps[closing] = end
			return
		}
	}

	if next < len(line) && line[next] == '[' {
		if labelEnd := strings.IndexByte(line[next+1:], ']'); labelEnd >= 0 {
			labelEnd += next + 1
			label := line[next+1 : labelEnd]
			if strings.TrimSpace(label) == "" {
				label = text
			}
			p.addReference(t.rangeOf(start, labelEnd+1), label, false)
			jumps[closing] = labelEnd + 1
			return
		}
	}

	if strings.ContainsAny(text, "[]") || strings.TrimSpace(text) == "" {
		return
	}
	p.addReference(t.rangeOf(start, closing+1), text, true)
}

func (p *parsedDoc) addReference(r domain.Range, label string, shortcut bool) {
	if strings.Contains(label, "\n") {
		label = strings.Join(strings.Fields(label), " ")
	}
	p.items = append(p.items, linkItem{
		Link: domain.Link{
			Range: r,
			Kind:  domain.LinkReference,
			Label: normalizeLabel(label),
		},
		rawLabel: label,
		shortcut: shortcut,
	})
}

// matchBracket returns the index of the ']' closing the '[' at start,
// or -1 when there is none.
func matchBracket(line string, start int) int {
	depth := 0
	for i := start; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseDestination parses "(dest "title")" starting at the '(' at open.
// It returns the destination bounds and the index after the closing ')'.
func parseDestination(line string, open int) (hrefStart, hrefEnd, end int, ok bool) {
	i := skipSpace(line, open+1)

	if i < len(line) && line[i] == '<' {
		closing := strings.IndexByte(line[i+1:], '>')
		if closing < 0 {
			return 0, 0, 0, false
		}
		hrefStart, hrefEnd = i+1, i+1+closing
		i = hrefEnd + 1
	} else {
		hrefStart = i
		depth := 0
	loop:
		for i < len(line) {
			switch line[i] {
			case '\\':
				i++
			case ' ', '\t', '\n':
				break loop
			case '(':
				depth++
			case ')':
				if depth == 0 {
					break loop
				}
				depth--
			}
			i++
		}
		if i > len(line) {
			i = len(line)
		}
		hrefEnd = i
	}

	i = skipSpace(line, i)
	if i < len(line) && (line[i] == '"' || line[i] == '\'' || line[i] == '(') {
		closer := line[i]
		if closer == '(' {
			closer = ')'
		}
		closing := strings.IndexByte(line[i+1:], closer)
		if closing < 0 {
			return 0, 0, 0, false
		}
		i = skipSpace(line, i+1+closing+1)
	}

	if i >= len(line) || line[i] != ')' {
		return 0, 0, 0, false
	}
	return hrefStart, hrefEnd, i + 1, true
}

func skipSpace(line string, i int) int {
	for i < len(line) && (line[i] == ' ' || line[i] == '\t' || line[i] == '\n') {
		i++
	}
	return i
}

// closesFence reports whether line ends the block opened by fence.
func closesFence(line, fence string) bool {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return false
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == fence[0] {
		n++
	}
	return n >= len(fence) && strings.TrimSpace(trimmed[n:]) == ""
}

// maskComments blanks HTML comments, which may span lines.
// It returns whether a comment is still open at the end of the line.
func maskComments(line string, inComment bool) (string, bool) {
	b := []byte(line)
	i := 0
	for i < len(b) {
		if inComment {
			end := strings.Index(string(b[i:]), "-->")
			if end < 0 {
				blank(b, i, len(b))
				return string(b), true
			}
			blank(b, i, i+end+3)
			i += end + 3
			inComment = false
			continue
		}
		start := strings.Index(string(b[i:]), "<!--")
		if start < 0 {
			break
		}
		i += start
		inComment = true
	}
	return string(b), inComment
}

// maskCodeSpans blanks `code` spans so their contents are not scanned.
func maskCodeSpans(line string) string {
	if !strings.Contains(line, "`") {
		return line
	}
	b := []byte(line)
	for i := 0; i < len(b); {
		if b[i] != '`' {
			i++
			continue
		}
		n := 0
		for i+n < len(b) && b[i+n] == '`' {
			n++
		}
		end := findBacktickRun(b, i+n, n)
		if end < 0 {
			i += n
			continue
		}
		blank(b, i, end+n)
		i = end + n
	}
	return string(b)
}

// findBacktickRun finds a run of exactly n backticks at or after from.
func findBacktickRun(b []byte, from, n int) int {
	for i := from; i < len(b); {
		if b[i] != '`' {
			i++
			continue
		}
		run := 0
		for i+run < len(b) && b[i+run] == '`' {
			run++
		}
		if run == n {
			return i
		}
		i += run
	}
	return -1
}

func blank(b []byte, from, to int) {
	for i := from; i < to; i++ {
		b[i] = ' '
	}
}
