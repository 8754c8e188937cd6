package sentiment

import (
	"math"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"

	ModelLexicon = "lexicon"
	ModelPattern = "pattern"

	// Scores in [-0.1, 0.1] read as neutral; the label flips only strictly
	// past the threshold.
	labelThreshold = 0.1
	// Each financial keyword hit nudges the score by this much.
	keywordAdjust = 0.1
)

// Result is one model's verdict on a piece of text.
type Result struct {
	Score      float64
	Label      string
	Confidence float64
}

// ModelResult pairs a Result with the model that produced it.
type ModelResult struct {
	Model string
	Result
}

type scorer interface {
	Name() string
	Score(text string) Result
}

// Analyzer scores article text with a fixed pair of models. The set is
// deliberately closed: persisted rows key on model name, so an open plugin
// registry would let two deployments disagree about what "lexicon" means.
type Analyzer struct {
	Logger *zap.Logger
	models []scorer
}

func NewAnalyzer(logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		Logger: logger,
		models: []scorer{lexiconScorer{}, patternScorer{}},
	}
}

// ModelNames returns the closed model set, in scoring order.
func (a *Analyzer) ModelNames() []string {
	names := make([]string, 0, len(a.models))
	for _, m := range a.models {
		names = append(names, m.Name())
	}
	return names
}

var (
	urlRe        = regexp.MustCompile(`https?://\S+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// CleanText strips markup and URLs and collapses whitespace. Provider content
// ranges from plain text to full HTML fragments; everything downstream
// assumes plain prose.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<>") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	s = urlRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ScoreFinancial runs one model over cleaned text, then nudges the base score
// by 0.1 per financial keyword present (case-insensitive substring) and
// re-derives the label from the adjusted score. Confidence is the model's own.
func (a *Analyzer) ScoreFinancial(text, model string) Result {
	clean := CleanText(text)
	if clean == "" {
		return Result{Score: 0, Label: LabelNeutral, Confidence: 0}
	}
	var base Result
	found := false
	for _, m := range a.models {
		if m.Name() == model {
			base = a.scoreSafe(m, clean)
			found = true
			break
		}
	}
	if !found {
		return Result{Score: 0, Label: LabelNeutral, Confidence: 0}
	}

	lower := strings.ToLower(clean)
	score := base.Score
	for _, kw := range positiveFinancialKeywords {
		if strings.Contains(lower, kw) {
			score += keywordAdjust
		}
	}
	for _, kw := range negativeFinancialKeywords {
		if strings.Contains(lower, kw) {
			score -= keywordAdjust
		}
	}
	score = clamp(score, -1, 1)
	return Result{Score: score, Label: labelFor(score), Confidence: base.Confidence}
}

// ScoreAll scores the text with every model. Scoring never blocks ingestion:
// a misbehaving model contributes the neutral default instead of an error.
func (a *Analyzer) ScoreAll(text string) []ModelResult {
	out := make([]ModelResult, 0, len(a.models))
	for _, m := range a.models {
		out = append(out, ModelResult{
			Model:  m.Name(),
			Result: a.ScoreFinancial(text, m.Name()),
		})
	}
	return out
}

func (a *Analyzer) scoreSafe(m scorer, clean string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			a.Logger.Warn("sentiment model panicked",
				zap.String("model", m.Name()),
				zap.Any("panic", r))
			res = Result{Score: 0, Label: LabelNeutral, Confidence: 0}
		}
	}()
	return m.Score(clean)
}

func labelFor(score float64) string {
	switch {
	case score > labelThreshold:
		return LabelPositive
	case score < -labelThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// --- lexicon model ----------------------------------------------------------

// lexiconScorer averages word polarities, honoring a single preceding negator
// or intensifier.
type lexiconScorer struct{}

func (lexiconScorer) Name() string { return ModelLexicon }

var tokenRe = regexp.MustCompile(`[a-z0-9'-]+`)

func (lexiconScorer) Score(text string) Result {
	tokens := tokenRe.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return Result{Label: LabelNeutral}
	}

	var total float64
	hits := 0
	for i, tok := range tokens {
		weight, ok := lexiconWeights[tok]
		if !ok {
			continue
		}
		if i > 0 {
			prev := tokens[i-1]
			if negators[prev] {
				weight = -weight
			} else if mult, ok := intensifiers[prev]; ok {
				weight *= mult
			}
		}
		total += weight
		hits++
	}
	if hits == 0 {
		return Result{Label: LabelNeutral, Confidence: 0.2}
	}

	score := clamp(total/float64(hits), -1, 1)
	// Confidence grows with lexicon coverage of the text.
	confidence := clamp(0.3+float64(hits)/float64(len(tokens))*3, 0, 0.95)
	return Result{Score: score, Label: labelFor(score), Confidence: confidence}
}

// --- pattern model ----------------------------------------------------------

// patternScorer looks for financial phrasing rather than individual words, so
// it reads "shares up 4%" and "beats estimates" that the word lists miss.
type patternScorer struct{}

func (patternScorer) Name() string { return ModelPattern }

type polarityPattern struct {
	re       *regexp.Regexp
	polarity float64
}

var pricePatterns = []polarityPattern{
	{regexp.MustCompile(`\b(?:up|rose|gained|climbed|jumped|surged)\s+[0-9]+(?:\.[0-9]+)?%`), 0.6},
	{regexp.MustCompile(`\b(?:down|fell|lost|dropped|slid|tumbled|plunged)\s+[0-9]+(?:\.[0-9]+)?%`), -0.6},
	{regexp.MustCompile(`\b(?:beats?|beat|topped|tops|exceeded)\s+(?:\w+\s+)?(?:estimates|expectations|forecasts)`), 0.7},
	{regexp.MustCompile(`\b(?:misses|missed|fell\s+short\s+of)\s+(?:\w+\s+)?(?:estimates|expectations|forecasts)`), -0.7},
	{regexp.MustCompile(`\b(?:raises?|raised|boosts?|boosted|lifts?|lifted)\s+(?:\w+\s+)?(?:guidance|outlook|forecast|dividend)`), 0.6},
	{regexp.MustCompile(`\b(?:cuts?|cut|lowers?|lowered|slashes|slashed)\s+(?:\w+\s+)?(?:guidance|outlook|forecast|dividend)`), -0.6},
	{regexp.MustCompile(`\brecord\s+(?:profit|revenue|sales|earnings|quarter)`), 0.6},
	{regexp.MustCompile(`\ball[- ]time\s+high`), 0.6},
	{regexp.MustCompile(`\b52[- ]week\s+low`), -0.5},
	{regexp.MustCompile(`\b(?:layoffs?|job\s+cuts)\b`), -0.5},
	{regexp.MustCompile(`\b(?:files?|filed)\s+for\s+bankruptcy`), -0.9},
	{regexp.MustCompile(`\b(?:upgrades?|upgraded)\b`), 0.5},
	{regexp.MustCompile(`\b(?:downgrades?|downgraded)\b`), -0.5},
}

func (patternScorer) Score(text string) Result {
	lower := strings.ToLower(text)
	var total float64
	matches := 0
	for _, p := range pricePatterns {
		n := len(p.re.FindAllStringIndex(lower, -1))
		if n == 0 {
			continue
		}
		total += p.polarity * float64(n)
		matches += n
	}
	if matches == 0 {
		return Result{Label: LabelNeutral, Confidence: 0.2}
	}
	score := clamp(total/float64(matches), -1, 1)
	confidence := clamp(0.4+0.15*float64(matches), 0, 0.95)
	return Result{Score: score, Label: labelFor(score), Confidence: confidence}
}
