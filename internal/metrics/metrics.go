package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IssuesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsletter_issues_processed_total",
			Help: "Total number of newsletter issues processed",
		},
		[]string{"publication"},
	)

	ArticlesUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsletter_articles_upserted_total",
			Help: "Total number of article upsert attempts by outcome",
		},
		[]string{"publication", "outcome"},
	)

	SyncPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsletter_sync_passes_total",
			Help: "Total number of per-publication sync passes by status",
		},
		[]string{"publication", "status"},
	)

	SyncJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsletter_sync_jobs_total",
			Help: "Total number of scheduler jobs by terminal status",
		},
		[]string{"status"},
	)
)
