package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quote_ticks_total", Help: "Accepted quote ticks ingested"},
		[]string{"instrument"},
	)
	TicksRejected = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "quote_ticks_rejected_total", Help: "Quote ticks rejected by validation"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Trading signals emitted per processor"},
		[]string{"source", "direction"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "decisions_total", Help: "Decision cycles by outcome"},
		[]string{"outcome"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Order intents submitted"},
		[]string{"token", "mode"},
	)
	MarketSwitches = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "market_switches_total", Help: "Epoch boundary market switches"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, TicksRejected, SignalsTotal, DecisionsTotal, OrdersTotal, MarketSwitches)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
