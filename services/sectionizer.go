package services

import (
	"regexp"
	"strings"
	"unicode"
)

// RawSection is one heading-labeled span produced by the sectionizer, before
// any embedding or minimum-length filtering happens.
type RawSection struct {
	Heading   string
	Content   string
	PageStart int
	PageEnd   int
}

// DefaultHeading labels the catch-all section used when a document exposes
// no recognizable structure.
const DefaultHeading = "Document"

// pageSeparator is the form-feed marker the extractor inserts between pages.
const pageSeparator = "\f"

// Sectionizer splits extracted document text into heading-labeled sections
// using an ordered cascade of line classification rules. It is deterministic
// and never fails; malformed input degrades to a single catch-all section.
type Sectionizer struct {
	maxHeadingLen   int
	maxSectionChars int
	rules           []headingRule
}

// headingRule is one named predicate in the classification cascade. Rules are
// evaluated in priority order; the first match wins.
type headingRule struct {
	name  string
	match func(line string) bool
}

var (
	numberedHeadingRe = regexp.MustCompile(`^\d+(\.\d+)*\.?\s+\S.*$`)
	romanHeadingRe    = regexp.MustCompile(`^[IVXLC]+\.\s+\S.*$`)
)

// structuralKeywords are heading labels common in reports and papers,
// matched case-insensitively against the whole line.
var structuralKeywords = map[string]struct{}{
	"abstract":         {},
	"introduction":     {},
	"background":       {},
	"related work":     {},
	"literature review": {},
	"method":           {},
	"methods":          {},
	"methodology":      {},
	"approach":         {},
	"experiments":      {},
	"evaluation":       {},
	"results":          {},
	"analysis":         {},
	"findings":         {},
	"discussion":       {},
	"limitations":      {},
	"future work":      {},
	"conclusion":       {},
	"conclusions":      {},
	"references":       {},
	"bibliography":     {},
	"acknowledgments":  {},
	"appendix":         {},
}

// NewSectionizer creates a sectionizer. maxHeadingLen caps how long a line may
// be and still classify as a heading; maxSectionChars is the body length at
// which a section is flushed early even without a heading boundary.
func NewSectionizer(maxHeadingLen, maxSectionChars int) *Sectionizer {
	if maxHeadingLen <= 0 {
		maxHeadingLen = 80
	}
	if maxSectionChars <= 0 {
		maxSectionChars = 2400
	}
	s := &Sectionizer{
		maxHeadingLen:   maxHeadingLen,
		maxSectionChars: maxSectionChars,
	}
	s.rules = []headingRule{
		{"numbered", func(l string) bool { return numberedHeadingRe.MatchString(l) }},
		{"roman", func(l string) bool { return romanHeadingRe.MatchString(l) }},
		{"keyword", isStructuralKeyword},
		{"all-caps", isAllCapsHeading},
		{"title-case", isTitleCaseHeading},
	}
	return s
}

// SplitSections turns raw document text into an ordered list of sections.
// Page hints are derived from form-feed markers when present; without them
// the whole text counts as page 1.
func (s *Sectionizer) SplitSections(text string) []RawSection {
	pages := strings.Split(text, pageSeparator)

	var sections []RawSection
	cur := RawSection{Heading: DefaultHeading, PageStart: 1}
	var body []string

	flush := func(pageEnd int) {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		if content != "" || cur.Heading != DefaultHeading {
			cur.Content = content
			cur.PageEnd = pageEnd
			sections = append(sections, cur)
		}
		body = body[:0]
	}

	for pageIdx, page := range pages {
		pageNo := pageIdx + 1
		for _, rawLine := range strings.Split(page, "\n") {
			line := strings.TrimSpace(rawLine)
			if line == "" {
				continue
			}
			if s.IsHeading(line) {
				flush(pageNo)
				cur = RawSection{Heading: line, PageStart: pageNo}
				continue
			}
			body = append(body, line)
			if bodyLen(body) > s.maxSectionChars {
				flush(pageNo)
				// Continue the oversized section under the same label
				// so embeddings stay representative of a bounded span.
				cur = RawSection{Heading: cur.Heading, PageStart: pageNo}
			}
		}
	}
	flush(len(pages))

	if len(sections) == 0 {
		content := strings.TrimSpace(text)
		if content == "" {
			return nil
		}
		return []RawSection{{
			Heading:   DefaultHeading,
			Content:   content,
			PageStart: 1,
			PageEnd:   len(pages),
		}}
	}
	return sections
}

// IsHeading classifies a single line. Lines over the length cap are never
// headings, which guards against misclassifying body prose.
func (s *Sectionizer) IsHeading(line string) bool {
	_, ok := s.ClassifyLine(line)
	return ok
}

// ClassifyLine returns the name of the first matching heading rule, or false
// when the line is body text. Exposing the rule name keeps each predicate in
// the cascade independently testable.
func (s *Sectionizer) ClassifyLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || len(line) > s.maxHeadingLen {
		return "", false
	}
	for _, r := range s.rules {
		if r.match(line) {
			return r.name, true
		}
	}
	return "", false
}

func isStructuralKeyword(line string) bool {
	_, ok := structuralKeywords[strings.ToLower(line)]
	return ok
}

func isAllCapsHeading(line string) bool {
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > 8 {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func isTitleCaseHeading(line string) bool {
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > 12 {
		return false
	}
	first := []rune(words[0])
	if !unicode.IsUpper(first[0]) {
		return false
	}
	capitalized := 0
	for _, w := range words {
		r := []rune(w)
		if unicode.IsUpper(r[0]) {
			capitalized++
		}
	}
	min := len(words) / 2
	if min < 2 {
		min = 2
	}
	return capitalized >= min
}

func bodyLen(lines []string) int {
	n := 0
	for _, l := range lines {
		n += len(l) + 1
	}
	return n
}
