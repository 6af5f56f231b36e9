package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ArchiveFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metarcal_archive_fetches_total",
			Help: "Total IEM ASOS archive fetches",
		},
		[]string{"station", "status"},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metarcal_cache_requests_total",
			Help: "Total cache lookups by result",
		},
		[]string{"result"},
	)

	SummariesComputedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metarcal_summaries_computed_total",
			Help: "Total hourly summaries computed from raw observations",
		},
		[]string{"station"},
	)
)
