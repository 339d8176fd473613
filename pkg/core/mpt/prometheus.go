package mpt

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring trie storage access.
var (
	//nodesLoaded prometheus metric.
	nodesLoaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of trie nodes read from the storage",
			Name:      "mpt_nodes_loaded_total",
			Namespace: "ethtrie",
		},
	)
	//nodesPersisted prometheus metric.
	nodesPersisted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of trie nodes written to the storage",
			Name:      "mpt_nodes_persisted_total",
			Namespace: "ethtrie",
		},
	)
	//commits prometheus metric.
	commits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of successful trie commits",
			Name:      "mpt_commits_total",
			Namespace: "ethtrie",
		},
	)
	//cacheHits prometheus metric.
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of node reads served from cache",
			Name:      "mpt_cache_hits_total",
			Namespace: "ethtrie",
		},
		[]string{"cache"},
	)
)

func init() {
	prometheus.MustRegister(
		nodesLoaded,
		nodesPersisted,
		commits,
		cacheHits,
	)
}

func updateCommitMetrics(nodes int) {
	nodesPersisted.Add(float64(nodes))
	commits.Inc()
}
