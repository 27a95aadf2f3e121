package processor

import "updownbot/internal/signal"

// SourceSentiment is the name the sentiment processor signs its signals with.
const SourceSentiment = "Sentiment"

// Sentiment maps the fear/greed index to a contrarian signal: extreme fear is
// bought, extreme greed is faded, the soft bands map to weak bias, and the
// neutral middle emits nothing.
type Sentiment struct {
	fearThreshold  float64
	greedThreshold float64
	minConfidence  float64
}

// NewSentiment builds the sentiment processor. Non-positive thresholds fall
// back to the 25/75 extremes.
func NewSentiment(fearThreshold, greedThreshold float64) *Sentiment {
	if fearThreshold <= 0 {
		fearThreshold = 25
	}
	if greedThreshold <= 0 {
		greedThreshold = 75
	}
	return &Sentiment{
		fearThreshold:  fearThreshold,
		greedThreshold: greedThreshold,
		minConfidence:  0.50,
	}
}

// Name returns the identifier for the processor.
func (p *Sentiment) Name() string { return SourceSentiment }

// Process emits a contrarian signal from the fear/greed score, or nothing when
// the score is absent or neutral.
func (p *Sentiment) Process(price float64, hist []float64, ctx *Context) *signal.TradingSignal {
	if ctx == nil || ctx.SentimentScore == nil {
		return nil
	}
	score := *ctx.SentimentScore

	var (
		direction  signal.Direction
		strength   signal.Strength
		confidence float64
	)

	switch {
	case score <= p.fearThreshold:
		direction = signal.Bullish
		strength, confidence = extremenessGrade((p.fearThreshold - score) / p.fearThreshold)
	case score >= p.greedThreshold:
		direction = signal.Bearish
		strength, confidence = extremenessGrade((score - p.greedThreshold) / (100 - p.greedThreshold))
	case score < 45:
		direction = signal.Bullish
		strength, confidence = signal.Weak, 0.55
	case score > 55:
		direction = signal.Bearish
		strength, confidence = signal.Weak, 0.55
	default:
		return nil
	}

	if confidence < p.minConfidence {
		return nil
	}

	return &signal.TradingSignal{
		Ts:         ctx.Now,
		Source:     p.Name(),
		Direction:  direction,
		Strength:   strength,
		Confidence: confidence,
		Price:      price,
		Meta: map[string]float64{
			"sentiment_score": score,
		},
	}
}

// extremenessGrade buckets how deep into the extreme band the score sits.
func extremenessGrade(extremeness float64) (signal.Strength, float64) {
	switch {
	case extremeness >= 0.8:
		return signal.VeryStrong, 0.85
	case extremeness >= 0.5:
		return signal.Strong, 0.75
	default:
		return signal.Moderate, 0.65
	}
}
