package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the fundraiser ledger.
type Metrics struct {
	FundraisersCreated prometheus.Counter
	ShareAssetsCreated prometheus.Counter
	StatsCacheHits     prometheus.Counter
	StatsCacheMisses   prometheus.Counter
}

// New creates and registers the fundraiser metrics.
func New() *Metrics {
	return &Metrics{
		FundraisersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reitvest_fundraisers_created_total",
			Help: "Total fundraising campaigns created.",
		}),
		ShareAssetsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reitvest_share_assets_created_total",
			Help: "Total share assets bound to fundraisers.",
		}),
		StatsCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reitvest_fundraiser_stats_cache_hits_total",
			Help: "Fundraiser stats served from the Redis cache.",
		}),
		StatsCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reitvest_fundraiser_stats_cache_misses_total",
			Help: "Fundraiser stats read from the primary store.",
		}),
	}
}
