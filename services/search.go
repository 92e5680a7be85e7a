package services

import (
	"regexp"
	"sort"
	"strings"

	"pdf-insight-backend/models"
)

// Relevance signal weights. Semantic similarity dominates, lexical overlap
// and a heading match refine the ordering.
const (
	semanticWeight      = 0.6
	lexicalWeight       = 0.3
	headingBoost        = 0.2
	maxQualityBoost     = 0.1
	shortSectionPenalty = 0.5
)

var wordRe = regexp.MustCompile(`\w+`)

// stopWords are stripped from queries when enough meaningful tokens remain.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {},
}

// CleanQuery collapses whitespace and removes stop words, keeping the
// original wording whenever stripping would leave fewer than two tokens.
func CleanQuery(query string) string {
	collapsed := strings.Join(strings.Fields(query), " ")
	words := strings.Fields(collapsed)
	meaningful := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := stopWords[strings.ToLower(w)]; !stop {
			meaningful = append(meaningful, w)
		}
	}
	if len(meaningful) < 2 {
		return collapsed
	}
	return strings.Join(meaningful, " ")
}

func tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

func tokenSet(text string) map[string]struct{} {
	tokens := tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// jaccard computes token-set Jaccard similarity between the query set and a
// body of text.
func jaccard(querySet map[string]struct{}, text string) float64 {
	textSet := tokenSet(text)
	if len(querySet) == 0 || len(textSet) == 0 {
		return 0
	}
	inter := 0
	for t := range querySet {
		if _, ok := textSet[t]; ok {
			inter++
		}
	}
	union := len(querySet) + len(textSet) - inter
	return float64(inter) / float64(union)
}

// scoredCandidate pairs a section row with its combined relevance score.
// Slot is the insertion position, kept as the stable tie break.
type scoredCandidate struct {
	slot     int
	score    float64
	semantic float64
}

// scoreCandidate combines the semantic similarity from the vector index with
// lexical overlap, a heading-match boost, and length-based adjustments.
func scoreCandidate(sec *models.Section, semantic float64, querySet map[string]struct{}, minResultWords int) float64 {
	score := semantic * semanticWeight
	score += jaccard(querySet, sec.Content) * lexicalWeight

	headingTokens := tokenSet(sec.Heading)
	for t := range querySet {
		if _, ok := headingTokens[t]; ok {
			score += headingBoost
			break
		}
	}

	if sec.WordCount > 100 {
		boost := float64(sec.WordCount) / 1000
		if boost > maxQualityBoost {
			boost = maxQualityBoost
		}
		score += boost
	}
	if sec.WordCount < minResultWords {
		score *= shortSectionPenalty
	}
	return score
}

// rankCandidates sorts candidates by score descending; the stable sort keeps
// insertion order on ties so identical inputs produce identical rankings.
func rankCandidates(candidates []scoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
}

// diversify walks the ranked candidates, skipping the excluded document and
// capping how many results one document may contribute, until topK results
// are accepted.
func diversify(candidates []scoredCandidate, sections []models.Section, topK, maxPerDoc int, excludeDoc string) []scoredCandidate {
	if maxPerDoc <= 0 {
		maxPerDoc = 2
	}
	perDoc := make(map[string]int)
	accepted := make([]scoredCandidate, 0, topK)
	for _, c := range candidates {
		sec := &sections[c.slot]
		if excludeDoc != "" && (sec.DocName == excludeDoc || sec.DocID == excludeDoc) {
			continue
		}
		if perDoc[sec.DocID] >= maxPerDoc {
			continue
		}
		perDoc[sec.DocID]++
		accepted = append(accepted, c)
		if len(accepted) >= topK {
			break
		}
	}
	return accepted
}

var sentenceEndRe = regexp.MustCompile(`[.!?]+(\s+|$)`)

// splitSentences cuts text into sentences, keeping terminal punctuation with
// each sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var sentences []string
	start := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[start:loc[1]])
		if s != "" {
			sentences = append(sentences, s)
		}
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// BuildSnippet produces a query-biased excerpt: all sentences when the
// section is short, otherwise a contiguous window of maxSentences centered
// on the sentence with the highest query-token density, truncated to
// maxChars with an ellipsis.
func BuildSnippet(text, query string, maxSentences, maxChars int) string {
	if maxSentences <= 0 {
		maxSentences = 4
	}
	if maxChars <= 0 {
		maxChars = 500
	}
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return truncate(strings.TrimSpace(text), maxChars)
	}
	if len(sentences) <= maxSentences {
		return truncate(strings.Join(sentences, " "), maxChars)
	}

	querySet := tokenSet(query)
	best, bestScore := 0, -1.0
	for i, s := range sentences {
		toks := tokenize(s)
		overlap := 0
		seen := make(map[string]struct{}, len(toks))
		for _, t := range toks {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			if _, ok := querySet[t]; ok {
				overlap++
			}
		}
		density := float64(overlap) / float64(max(len(seen), 1))
		score := float64(overlap) + density*0.5
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	// Contiguous window centered on the densest sentence.
	start := best - maxSentences/2
	if start < 0 {
		start = 0
	}
	end := start + maxSentences
	if end > len(sentences) {
		end = len(sentences)
		start = end - maxSentences
	}
	return truncate(strings.Join(sentences[start:end], " "), maxChars)
}

func truncate(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	return s[:maxChars-3] + "..."
}
