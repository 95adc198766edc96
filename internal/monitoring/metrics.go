package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luno_bot_trades_total",
			Help: "Total number of orders placed",
		},
		[]string{"pair", "side"},
	)

	tradeValue = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "luno_bot_trade_value",
			Help:    "Distribution of order values in quote currency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pair"},
	)

	// Market data metrics
	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "luno_bot_current_price",
			Help: "Last observed price per trading pair",
		},
		[]string{"pair"},
	)

	// Strategy metrics
	trendStrength = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "luno_bot_trend_strength",
			Help: "Trend signal strength per asset (0-100)",
		},
		[]string{"asset", "trend"},
	)

	profitRealized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "luno_bot_profit_realized_total",
			Help: "Cumulative realized profit in quote currency",
		},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luno_bot_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradeValue)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(trendStrength)
	prometheus.MustRegister(profitRealized)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordTrade records a placed order
func RecordTrade(pair, side string, value float64) {
	tradesTotal.WithLabelValues(pair, side).Inc()
	tradeValue.WithLabelValues(pair).Observe(value)
}

// UpdatePrice updates the current price metric
func UpdatePrice(pair string, price float64) {
	currentPrice.WithLabelValues(pair).Set(price)
}

// UpdateTrendStrength updates the trend strength metric
func UpdateTrendStrength(asset, trend string, strength float64) {
	trendStrength.WithLabelValues(asset, trend).Set(strength)
}

// RecordProfit adds to the cumulative realized profit counter
func RecordProfit(profit float64) {
	if profit > 0 {
		profitRealized.Add(profit)
	}
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
