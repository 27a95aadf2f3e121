package processor

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"updownbot/internal/datasource"
	"updownbot/internal/history"
	"updownbot/internal/signal"
)

func flatHistory(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func TestSpikeFadesDeviation(t *testing.T) {
	p := NewSpike(0.05, 20)
	ctx := &Context{Now: time.Now()}

	sig := p.Process(0.56, flatHistory(20, 0.50), ctx)
	if sig == nil {
		t.Fatalf("expected fade signal on 12%% deviation")
	}
	if sig.Direction != signal.Bearish {
		t.Fatalf("spike up must fade bearish, got %s", sig.Direction)
	}
	if math.Abs(sig.Confidence-0.64) > 1e-9 {
		t.Fatalf("unexpected confidence %v", sig.Confidence)
	}
}

func TestSpikeMomentumContinuation(t *testing.T) {
	p := NewSpike(0.05, 20)
	ctx := &Context{Now: time.Now()}

	sig := p.Process(0.52, flatHistory(20, 0.50), ctx)
	if sig == nil {
		t.Fatalf("expected continuation signal below fade threshold")
	}
	if sig.Direction != signal.Bullish {
		t.Fatalf("rising velocity must continue bullish, got %s", sig.Direction)
	}
	if sig.Strength != signal.Weak {
		t.Fatalf("continuation must stay weak, got %s", sig.Strength)
	}
}

func TestSpikeQuietMarket(t *testing.T) {
	p := NewSpike(0.05, 20)
	ctx := &Context{Now: time.Now()}

	if sig := p.Process(0.505, flatHistory(20, 0.50), ctx); sig != nil {
		t.Fatalf("expected no signal on quiet market, got %+v", sig)
	}
	if sig := p.Process(0.56, flatHistory(10, 0.50), ctx); sig != nil {
		t.Fatalf("expected no signal with short history, got %+v", sig)
	}
}

func TestSentimentBands(t *testing.T) {
	p := NewSentiment(25, 75)
	now := time.Now()

	cases := []struct {
		score      float64
		direction  signal.Direction
		strength   signal.Strength
		confidence float64
	}{
		{5, signal.Bullish, signal.VeryStrong, 0.85},
		{20, signal.Bullish, signal.Moderate, 0.65},
		{40, signal.Bullish, signal.Weak, 0.55},
		{60, signal.Bearish, signal.Weak, 0.55},
		{90, signal.Bearish, signal.Strong, 0.75},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("score=%v", tc.score), func(t *testing.T) {
			score := tc.score
			sig := p.Process(0.50, nil, &Context{Now: now, SentimentScore: &score})
			if sig == nil {
				t.Fatalf("expected signal for score %v", tc.score)
			}
			if sig.Direction != tc.direction || sig.Strength != tc.strength {
				t.Fatalf("score %v: got %s/%s", tc.score, sig.Direction, sig.Strength)
			}
			if math.Abs(sig.Confidence-tc.confidence) > 1e-9 {
				t.Fatalf("score %v: confidence %v, want %v", tc.score, sig.Confidence, tc.confidence)
			}
		})
	}
}

func TestSentimentNeutralAndAbsent(t *testing.T) {
	p := NewSentiment(25, 75)
	now := time.Now()

	neutral := 50.0
	if sig := p.Process(0.50, nil, &Context{Now: now, SentimentScore: &neutral}); sig != nil {
		t.Fatalf("neutral sentiment must emit nothing, got %+v", sig)
	}
	if sig := p.Process(0.50, nil, &Context{Now: now}); sig != nil {
		t.Fatalf("absent sentiment must emit nothing, got %+v", sig)
	}
}

func TestDivergenceExtremeFade(t *testing.T) {
	p := NewDivergence(0.003, 0.68, 0.32)
	ctx := &Context{Now: time.Now()}

	sig := p.Process(0.75, nil, ctx)
	if sig == nil {
		t.Fatalf("expected fade on extreme probability without confirming momentum")
	}
	if sig.Direction != signal.Bearish {
		t.Fatalf("high probability fades bearish, got %s", sig.Direction)
	}

	sig = p.Process(0.20, nil, ctx)
	if sig == nil || sig.Direction != signal.Bullish {
		t.Fatalf("low probability fades bullish, got %+v", sig)
	}
}

func TestDivergenceMomentumMispricing(t *testing.T) {
	p := NewDivergence(0.003, 0.68, 0.32)
	now := time.Now()

	// Prime the rolling spot history; the first two cycles cannot compute
	// momentum yet.
	for _, spot := range []float64{100, 100.2} {
		s := spot
		if sig := p.Process(0.50, nil, &Context{Now: now, SpotPrice: &s}); sig != nil {
			t.Fatalf("expected no signal while priming, got %+v", sig)
		}
	}

	spot := 101.0
	sig := p.Process(0.50, nil, &Context{Now: now, SpotPrice: &spot})
	if sig == nil {
		t.Fatalf("expected momentum mispricing signal")
	}
	if sig.Direction != signal.Bullish || sig.Strength != signal.Strong {
		t.Fatalf("got %s/%s, want BULLISH/STRONG", sig.Direction, sig.Strength)
	}
}

func TestDivergenceConfirmedExtremeSkips(t *testing.T) {
	p := NewDivergence(0.003, 0.68, 0.32)
	now := time.Now()

	for _, spot := range []float64{100, 101} {
		s := spot
		p.Process(0.50, nil, &Context{Now: now, SpotPrice: &s})
	}

	// Strong upward spot momentum confirms the extreme Up probability; the
	// fade must not fire and the band rule is out of range.
	spot := 103.0
	if sig := p.Process(0.75, nil, &Context{Now: now, SpotPrice: &spot}); sig != nil {
		t.Fatalf("confirmed extreme must not fade, got %+v", sig)
	}
}

func TestOrderBookImbalance(t *testing.T) {
	p := NewOrderBook(0.30, 50)
	ctx := &Context{
		Now: time.Now(),
		Book: &datasource.Book{
			Bids: []datasource.BookLevel{{Price: 0.50, Size: 1600}}, // $800
			Asks: []datasource.BookLevel{{Price: 0.50, Size: 400}},  // $200
		},
	}

	sig := p.Process(0.52, nil, ctx)
	if sig == nil {
		t.Fatalf("expected signal on +0.60 imbalance")
	}
	if sig.Direction != signal.Bullish {
		t.Fatalf("heavy bids must read bullish, got %s", sig.Direction)
	}
	if sig.Strength != signal.Strong {
		t.Fatalf("0.60 imbalance grades STRONG, got %s", sig.Strength)
	}
	if sig.Confidence < 0.55 {
		t.Fatalf("confidence %v below floor", sig.Confidence)
	}
	if math.Abs(sig.Meta["imbalance"]-0.60) > 1e-9 {
		t.Fatalf("unexpected imbalance %v", sig.Meta["imbalance"])
	}
}

func TestOrderBookThinAndBalanced(t *testing.T) {
	p := NewOrderBook(0.30, 50)
	now := time.Now()

	thin := &Context{Now: now, Book: &datasource.Book{
		Bids: []datasource.BookLevel{{Price: 0.50, Size: 20}},
		Asks: []datasource.BookLevel{{Price: 0.50, Size: 10}},
	}}
	if sig := p.Process(0.52, nil, thin); sig != nil {
		t.Fatalf("thin book must be a silent skip, got %+v", sig)
	}

	balanced := &Context{Now: now, Book: &datasource.Book{
		Bids: []datasource.BookLevel{{Price: 0.50, Size: 1000}},
		Asks: []datasource.BookLevel{{Price: 0.50, Size: 1000}},
	}}
	if sig := p.Process(0.52, nil, balanced); sig != nil {
		t.Fatalf("balanced book must emit nothing, got %+v", sig)
	}

	if sig := p.Process(0.52, nil, &Context{Now: now}); sig != nil {
		t.Fatalf("absent book must emit nothing, got %+v", sig)
	}
}

func velocityTicks(now time.Time, prices map[int]float64) []history.Tick {
	offsets := []int{90, 75, 60, 45, 30}
	out := make([]history.Tick, 0, len(offsets))
	for _, off := range offsets {
		out = append(out, history.Tick{Ts: now.Add(-time.Duration(off) * time.Second), Price: prices[off]})
	}
	return out
}

func TestVelocityAcceleratingMove(t *testing.T) {
	p := NewVelocity(0.015, 0.010)
	now := time.Now()

	ctx := &Context{Now: now, Ticks: velocityTicks(now, map[int]float64{
		90: 0.50, 75: 0.50, 60: 0.50, 45: 0.51, 30: 0.50,
	})}
	sig := p.Process(0.52, nil, ctx)
	if sig == nil {
		t.Fatalf("expected signal on 4%% move in 30s")
	}
	if sig.Direction != signal.Bullish || sig.Strength != signal.VeryStrong {
		t.Fatalf("got %s/%s, want BULLISH/VERY_STRONG", sig.Direction, sig.Strength)
	}
	// Capped base 0.82 plus the acceleration bonus.
	if math.Abs(sig.Confidence-0.88) > 1e-9 {
		t.Fatalf("unexpected confidence %v", sig.Confidence)
	}
}

func TestVelocityReversalReducesConfidence(t *testing.T) {
	p := NewVelocity(0.015, 0.010)
	now := time.Now()

	ctx := &Context{Now: now, Ticks: velocityTicks(now, map[int]float64{
		90: 0.50, 75: 0.50, 60: 0.50, 45: 0.52, 30: 0.54,
	})}
	sig := p.Process(0.52, nil, ctx)
	if sig == nil {
		t.Fatalf("expected signal on fast 30s drop")
	}
	if sig.Direction != signal.Bearish {
		t.Fatalf("falling 30s leg must read bearish, got %s", sig.Direction)
	}
	if math.Abs(sig.Confidence-0.704) > 1e-9 {
		t.Fatalf("reversal must scale confidence to 0.704, got %v", sig.Confidence)
	}
}

func TestVelocityInsufficientTicks(t *testing.T) {
	p := NewVelocity(0.015, 0.010)
	now := time.Now()

	ctx := &Context{Now: now, Ticks: []history.Tick{
		{Ts: now.Add(-30 * time.Second), Price: 0.50},
	}}
	if sig := p.Process(0.52, nil, ctx); sig != nil {
		t.Fatalf("expected no signal with one tick, got %+v", sig)
	}
}

func TestPCRContrarian(t *testing.T) {
	p := NewPutCallRatio(nil, 1.20, 0.70, 2, 300)
	now := time.Now()

	high := &Context{Now: now, PCR: &PCRData{Short: 1.50}}
	sig := p.Process(0.50, nil, high)
	if sig == nil || sig.Direction != signal.Bullish || sig.Strength != signal.Strong {
		t.Fatalf("high PCR must read contrarian bullish/strong, got %+v", sig)
	}

	low := &Context{Now: now, PCR: &PCRData{Short: 0.50}}
	sig = p.Process(0.50, nil, low)
	if sig == nil || sig.Direction != signal.Bearish || sig.Strength != signal.Strong {
		t.Fatalf("low PCR must read contrarian bearish/strong, got %+v", sig)
	}

	balanced := &Context{Now: now, PCR: &PCRData{Short: 1.00}}
	if sig := p.Process(0.50, nil, balanced); sig != nil {
		t.Fatalf("balanced PCR must emit nothing, got %+v", sig)
	}
	if sig := p.Process(0.50, nil, &Context{Now: now}); sig != nil {
		t.Fatalf("absent PCR must emit nothing, got %+v", sig)
	}
}

type fakeOptionsSource struct {
	calls     int
	summaries []datasource.OptionSummary
	err       error
}

func (f *fakeOptionsSource) OptionSummaries(ctx context.Context) ([]datasource.OptionSummary, error) {
	f.calls++
	return f.summaries, f.err
}

func TestPCRSnapshotCaching(t *testing.T) {
	src := &fakeOptionsSource{summaries: []datasource.OptionSummary{
		{InstrumentName: "BTC-20FEB26-95000-P", OpenInterest: 600},
		{InstrumentName: "BTC-20FEB26-95000-C", OpenInterest: 400},
	}}
	p := NewPutCallRatio(src, 1.20, 0.70, 2, 300)
	now := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)

	data := p.Snapshot(context.Background(), now)
	if data == nil {
		t.Fatalf("expected PCR data")
	}
	if math.Abs(data.Short-1.5) > 1e-9 {
		t.Fatalf("unexpected short PCR %v", data.Short)
	}

	// Within TTL the cached reading is served without a fetch.
	p.Snapshot(context.Background(), now.Add(time.Minute))
	if src.calls != 1 {
		t.Fatalf("expected 1 fetch, got %d", src.calls)
	}

	// A stale cache with a failing source degrades to the last reading.
	src.err = fmt.Errorf("options endpoint down")
	data = p.Snapshot(context.Background(), now.Add(10*time.Minute))
	if data == nil || math.Abs(data.Short-1.5) > 1e-9 {
		t.Fatalf("stale fetch failure must serve last reading, got %+v", data)
	}
}
