package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the investment lifecycle.
type Metrics struct {
	Transitions     *prometheus.CounterVec
	GuardRejections *prometheus.CounterVec
	DepositedAmount prometheus.Counter
	RefundedAmount  prometheus.Counter
	SharesIssued    prometheus.Counter
	DividendsPaid   prometheus.Counter
}

// New creates and registers the investment metrics.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reitvest_investment_transitions_total",
			Help: "Completed lifecycle transitions by resulting status.",
		}, []string{"status"}),
		GuardRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reitvest_investment_guard_rejections_total",
			Help: "Lifecycle operations rejected before any funds moved, by error code.",
		}, []string{"code"}),
		DepositedAmount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reitvest_deposited_micro_units_total",
			Help: "Currency micro-units deposited into escrow.",
		}),
		RefundedAmount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reitvest_refunded_micro_units_total",
			Help: "Currency micro-units returned to investors.",
		}),
		SharesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reitvest_shares_issued_total",
			Help: "Share units minted to investors.",
		}),
		DividendsPaid: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reitvest_dividend_micro_units_total",
			Help: "Currency micro-units distributed as dividends.",
		}),
	}
}
