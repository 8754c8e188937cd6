package sentiment

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestCleanText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "html stripped",
			in:   `<p>Shares <b>rose</b> today.</p>`,
			want: "Shares rose today.",
		},
		{
			name: "url stripped",
			in:   "Read more at https://example.com/story?id=1 now",
			want: "Read more at now",
		},
		{
			name: "whitespace collapsed",
			in:   "two\n\n  words\there",
			want: "two words here",
		},
		{
			name: "blank",
			in:   "   ",
			want: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanText(tc.in); got != tc.want {
				t.Fatalf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestScoreFinancialBlankText(t *testing.T) {
	a := NewAnalyzer(zap.NewNop())
	for _, model := range a.ModelNames() {
		res := a.ScoreFinancial("   ", model)
		if res.Score != 0 || res.Label != LabelNeutral || res.Confidence != 0 {
			t.Fatalf("model %s: blank text should be neutral zero, got %+v", model, res)
		}
	}
}

func TestScoreFinancialUnknownModel(t *testing.T) {
	a := NewAnalyzer(zap.NewNop())
	res := a.ScoreFinancial("strong growth", "nonsense")
	if res.Score != 0 || res.Label != LabelNeutral {
		t.Fatalf("unknown model should be neutral zero, got %+v", res)
	}
}

func TestLexiconPolarity(t *testing.T) {
	a := NewAnalyzer(zap.NewNop())

	pos := a.ScoreFinancial("Company reports strong growth and record gains", ModelLexicon)
	if pos.Label != LabelPositive || pos.Score <= 0 {
		t.Fatalf("expected positive, got %+v", pos)
	}

	neg := a.ScoreFinancial("Shares plunge after profit warning and layoffs", ModelLexicon)
	if neg.Label != LabelNegative || neg.Score >= 0 {
		t.Fatalf("expected negative, got %+v", neg)
	}

	neutral := a.ScoreFinancial("The company held its annual meeting on Tuesday", ModelLexicon)
	if neutral.Label != LabelNeutral {
		t.Fatalf("expected neutral, got %+v", neutral)
	}
}

func TestLexiconNegation(t *testing.T) {
	var s lexiconScorer
	plain := s.Score("the results were good")
	negated := s.Score("the results were not good")
	if plain.Score <= 0 {
		t.Fatalf("expected positive base, got %+v", plain)
	}
	if negated.Score >= 0 {
		t.Fatalf("expected negation to flip polarity, got %+v", negated)
	}
}

func TestPatternPolarity(t *testing.T) {
	var s patternScorer

	pos := s.Score("shares climbed 4.2% after the company beat estimates")
	if pos.Label != LabelPositive {
		t.Fatalf("expected positive, got %+v", pos)
	}

	neg := s.Score("the stock dropped 6% as management cut guidance")
	if neg.Label != LabelNegative {
		t.Fatalf("expected negative, got %+v", neg)
	}

	none := s.Score("the board met on thursday")
	if none.Label != LabelNeutral || none.Score != 0 {
		t.Fatalf("expected neutral on no pattern match, got %+v", none)
	}
}

func TestKeywordAdjustmentAndClamp(t *testing.T) {
	a := NewAnalyzer(zap.NewNop())

	// Neutral base text plus one positive keyword lands exactly on the label
	// threshold, which still reads as neutral.
	res := a.ScoreFinancial("the company announced a buyback on tuesday", ModelPattern)
	if res.Score != keywordAdjust {
		t.Fatalf("expected keyword-only score %v, got %v", keywordAdjust, res.Score)
	}
	if res.Label != LabelNeutral {
		t.Fatalf("score exactly at the threshold must stay neutral, got %+v", res)
	}

	// Two keyword hits push strictly past the threshold.
	two := a.ScoreFinancial("analysts expect the stock to outperform after the buyback", ModelPattern)
	if two.Score != 2*keywordAdjust {
		t.Fatalf("expected two keyword hits, got score %v", two.Score)
	}
	if two.Label != LabelPositive {
		t.Fatalf("expected positive past the threshold, got %+v", two)
	}

	// A strongly negative base with every negative keyword stays clamped.
	text := "shares plunged 40% after bankruptcy " + strings.Join(negativeFinancialKeywords, " ")
	worst := a.ScoreFinancial(text, ModelPattern)
	if worst.Score < -1 {
		t.Fatalf("score must clamp to [-1,1], got %v", worst.Score)
	}
	if worst.Label != LabelNegative {
		t.Fatalf("expected negative, got %+v", worst)
	}
}

func TestSingleWordFinancialKeywords(t *testing.T) {
	a := NewAnalyzer(zap.NewNop())

	// "profit" alone must fire the adjustment on an otherwise neutral text.
	res := a.ScoreFinancial("quarterly profit announced on tuesday", ModelPattern)
	if res.Score != keywordAdjust {
		t.Fatalf("expected profit keyword to adjust score to %v, got %v", keywordAdjust, res.Score)
	}

	neg := a.ScoreFinancial("another quarterly loss announced on tuesday", ModelPattern)
	if neg.Score != -keywordAdjust {
		t.Fatalf("expected loss keyword to adjust score to %v, got %v", -keywordAdjust, neg.Score)
	}
}

func TestLabelThresholdStrict(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.1, LabelNeutral},
		{-0.1, LabelNeutral},
		{0.1000001, LabelPositive},
		{-0.1000001, LabelNegative},
		{0, LabelNeutral},
	}
	for _, tc := range cases {
		if got := labelFor(tc.score); got != tc.want {
			t.Fatalf("labelFor(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestScoreAllCoversClosedModelSet(t *testing.T) {
	a := NewAnalyzer(zap.NewNop())
	results := a.ScoreAll("Revenue growth beat expectations, shares rallied")
	if len(results) != 2 {
		t.Fatalf("expected 2 model results, got %d", len(results))
	}
	seen := map[string]bool{}
	for _, r := range results {
		seen[r.Model] = true
		if r.Label == "" {
			t.Fatalf("model %s produced empty label", r.Model)
		}
	}
	if !seen[ModelLexicon] || !seen[ModelPattern] {
		t.Fatalf("expected lexicon and pattern results, got %v", seen)
	}
}
