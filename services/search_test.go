package services

import (
	"math"
	"strings"
	"testing"

	"pdf-insight-backend/models"
)

func TestCleanQuery(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"what is the role of transfer learning", "what role transfer learning"},
		{"  transfer   learning  ", "transfer learning"},
		{"the cat", "the cat"},
		{"in the of", "in the of"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CleanQuery(tc.in); got != tc.want {
			t.Errorf("CleanQuery(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestJaccard(t *testing.T) {
	qs := tokenSet("transfer learning")
	if got := jaccard(qs, "transfer learning"); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("identical sets = %f, want 1.0", got)
	}
	// {transfer, learning} vs {negative, transfer, occurs}: 1 shared of 4.
	if got := jaccard(qs, "negative transfer occurs"); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("partial overlap = %f, want 0.25", got)
	}
	if got := jaccard(qs, "completely unrelated words"); got != 0 {
		t.Errorf("disjoint sets = %f, want 0", got)
	}
	if got := jaccard(qs, ""); got != 0 {
		t.Errorf("empty text = %f, want 0", got)
	}
}

func TestScoreCandidateHeadingBoost(t *testing.T) {
	qs := tokenSet("transfer learning")
	base := models.Section{Heading: "Background", Content: "transfer learning reuses knowledge", WordCount: 120}
	boosted := base
	boosted.Heading = "Transfer Methods"

	plain := scoreCandidate(&base, 0.9, qs, 50)
	withBoost := scoreCandidate(&boosted, 0.9, qs, 50)
	diff := withBoost - plain
	if math.Abs(diff-headingBoost) > 1e-9 {
		t.Errorf("heading boost delta = %f, want %f", diff, headingBoost)
	}
}

func TestScoreCandidateQualityBoostCapped(t *testing.T) {
	qs := tokenSet("transfer learning")
	small := models.Section{Heading: "x", Content: "nothing shared", WordCount: 200}
	huge := small
	huge.WordCount = 5000

	smallScore := scoreCandidate(&small, 0.5, qs, 50)
	hugeScore := scoreCandidate(&huge, 0.5, qs, 50)
	if math.Abs(hugeScore-smallScore) > maxQualityBoost {
		t.Errorf("quality boost not capped: small=%f huge=%f", smallScore, hugeScore)
	}
	if hugeScore-(0.5*semanticWeight) < maxQualityBoost-1e-9 {
		t.Errorf("huge section boost = %f, want %f", hugeScore-0.5*semanticWeight, maxQualityBoost)
	}
}

func TestScoreCandidateShortSectionPenalty(t *testing.T) {
	qs := tokenSet("transfer learning")
	long := models.Section{Heading: "x", Content: "no overlap here", WordCount: 60}
	short := long
	short.WordCount = 10

	longScore := scoreCandidate(&long, 0.8, qs, 50)
	shortScore := scoreCandidate(&short, 0.8, qs, 50)
	if math.Abs(shortScore-longScore*shortSectionPenalty) > 1e-9 {
		t.Errorf("short score = %f, want half of %f", shortScore, longScore)
	}
}

func TestDiversifyCapsPerDocument(t *testing.T) {
	sections := []models.Section{
		{DocID: "a", DocName: "a.pdf"},
		{DocID: "a", DocName: "a.pdf"},
		{DocID: "a", DocName: "a.pdf"},
		{DocID: "b", DocName: "b.pdf"},
	}
	candidates := []scoredCandidate{
		{slot: 0, score: 0.9},
		{slot: 1, score: 0.8},
		{slot: 2, score: 0.7},
		{slot: 3, score: 0.6},
	}
	got := diversify(candidates, sections, 3, 2, "")
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	if got[0].slot != 0 || got[1].slot != 1 || got[2].slot != 3 {
		t.Errorf("slots = %d,%d,%d, want 0,1,3", got[0].slot, got[1].slot, got[2].slot)
	}
}

func TestDiversifyExcludesDocument(t *testing.T) {
	sections := []models.Section{
		{DocID: "a", DocName: "a.pdf"},
		{DocID: "b", DocName: "b.pdf"},
	}
	candidates := []scoredCandidate{
		{slot: 0, score: 0.9},
		{slot: 1, score: 0.1},
	}
	got := diversify(candidates, sections, 5, 2, "a.pdf")
	if len(got) != 1 || got[0].slot != 1 {
		t.Fatalf("exclusion by name failed: %+v", got)
	}
	got = diversify(candidates, sections, 5, 2, "a")
	if len(got) != 1 || got[0].slot != 1 {
		t.Fatalf("exclusion by id failed: %+v", got)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First point. Second point! Is this third? Fourth")
	want := []string{"First point.", "Second point!", "Is this third?", "Fourth"}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
	if splitSentences("  ") != nil {
		t.Errorf("blank input should yield nil")
	}
}

func TestBuildSnippetShortSection(t *testing.T) {
	text := "One sentence. Two sentence. Three sentence."
	got := BuildSnippet(text, "anything", 4, 500)
	if got != "One sentence. Two sentence. Three sentence." {
		t.Errorf("short section snippet = %q", got)
	}
}

func TestBuildSnippetWindowsOnQuery(t *testing.T) {
	text := "Filler about weather patterns. More filler about cooking. " +
		"Even more filler about travel. Negative transfer occurs when domains differ. " +
		"It can be mitigated with careful source selection. Final unrelated remark."
	got := BuildSnippet(text, "negative transfer", 4, 500)
	if !strings.Contains(got, "Negative transfer occurs when domains differ.") {
		t.Errorf("snippet missed the matching sentence: %q", got)
	}
	if len(splitSentences(got)) > 4 {
		t.Errorf("snippet window too wide: %q", got)
	}
}

func TestBuildSnippetTruncates(t *testing.T) {
	text := strings.Repeat("word ", 200) + "end."
	got := BuildSnippet(text, "word", 4, 80)
	if len(got) != 80 {
		t.Errorf("snippet length = %d, want 80", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated snippet missing ellipsis: %q", got)
	}
}
