package sentiment

// Word lists for the lexicon model. Weights are polarity in [-1, 1]; the
// handful of strong words sit near the ends.
var lexiconWeights = map[string]float64{
	// positive
	"gain":          0.5,
	"gains":         0.5,
	"growth":        0.5,
	"strong":        0.5,
	"beat":          0.6,
	"beats":         0.6,
	"record":        0.4,
	"rally":         0.6,
	"rallies":       0.6,
	"bullish":       0.7,
	"optimistic":    0.5,
	"upbeat":        0.5,
	"positive":      0.4,
	"good":          0.3,
	"great":         0.6,
	"excellent":     0.8,
	"success":       0.5,
	"successful":    0.5,
	"win":           0.4,
	"wins":          0.4,
	"improve":       0.4,
	"improved":      0.4,
	"improvement":   0.4,
	"expand":        0.3,
	"expansion":     0.3,
	"breakthrough":  0.7,
	"outstanding":   0.8,
	"robust":        0.5,
	"soar":          0.8,
	"soars":         0.8,
	"soared":        0.8,
	"momentum":      0.3,
	"recovery":      0.4,
	"rebound":       0.5,

	// negative
	"loss":          -0.5,
	"losses":        -0.5,
	"decline":       -0.5,
	"declines":      -0.5,
	"weak":          -0.5,
	"miss":          -0.5,
	"misses":        -0.5,
	"missed":        -0.5,
	"drop":          -0.5,
	"drops":         -0.5,
	"fall":          -0.4,
	"falls":         -0.4,
	"fell":          -0.4,
	"bearish":       -0.7,
	"pessimistic":   -0.5,
	"negative":      -0.4,
	"bad":           -0.4,
	"poor":          -0.5,
	"terrible":      -0.8,
	"fail":          -0.6,
	"fails":         -0.6,
	"failure":       -0.6,
	"concern":       -0.3,
	"concerns":      -0.3,
	"risk":          -0.3,
	"risks":         -0.3,
	"warning":       -0.5,
	"lawsuit":       -0.5,
	"investigation": -0.4,
	"fraud":         -0.9,
	"plunge":        -0.8,
	"plunges":       -0.8,
	"plunged":       -0.8,
	"crash":         -0.9,
	"slump":         -0.6,
	"layoffs":       -0.6,
	"bankruptcy":    -0.9,
	"recall":        -0.5,
	"downgrade":     -0.6,
	"downgraded":    -0.6,
}

// Words that flip the polarity of the word that follows.
var negators = map[string]bool{
	"not":     true,
	"no":      true,
	"never":   true,
	"without": true,
	"hardly":  true,
	"barely":  true,
}

// Words that scale the polarity of the word that follows.
var intensifiers = map[string]float64{
	"very":      1.3,
	"extremely": 1.5,
	"highly":    1.3,
	"slightly":  0.6,
	"somewhat":  0.7,
	"sharply":   1.4,
}

// Domain keywords applied after the base score: each present keyword nudges
// the score by 0.1 toward its polarity. Matching is plain substring, so
// "gains" and "profits" hit their singular forms.
var positiveFinancialKeywords = []string{
	"profit",
	"growth",
	"gain",
	"rise",
	"increase",
	"surge",
	"beat",
	"strong",
	"upgrade",
	"bullish",
	"rally",
	"outperform",
	"buyback",
	"record revenue",
	"raised guidance",
	"all-time high",
}

var negativeFinancialKeywords = []string{
	"loss",
	"decline",
	"drop",
	"fall",
	"decrease",
	"miss",
	"weak",
	"downgrade",
	"bearish",
	"plunge",
	"crash",
	"lawsuit",
	"bankruptcy",
	"layoff",
	"underperform",
	"profit warning",
	"cut guidance",
	"sec investigation",
	"going concern",
	"chapter 11",
}
