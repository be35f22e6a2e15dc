// Package metrics defines the prometheus instruments SPEC_FULL.md's
// GET /metrics exposes: queue depth, claim/complete/fail counters,
// webhook intake outcomes, and claim-to-complete latency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "paysync_job_queue_depth",
		Help: "Number of jobs currently in each status.",
	}, []string{"status"})

	JobsClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paysync_jobs_claimed_total",
		Help: "Total jobs claimed by workers.",
	})

	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paysync_jobs_completed_total",
		Help: "Total jobs that completed successfully.",
	})

	JobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paysync_jobs_failed_total",
		Help: "Total job processing failures, by whether the job moved to failed (retry budget exhausted or non-retryable error).",
	}, []string{"terminal"})

	JobsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paysync_jobs_reaped_total",
		Help: "Total jobs reclaimed from an expired processing lease.",
	})

	WebhookIntake = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paysync_webhook_intake_total",
		Help: "Webhook intake outcomes.",
	}, []string{"outcome"})

	ClaimToCompleteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paysync_claim_to_complete_seconds",
		Help:    "Time from a job being claimed to it being marked complete or failed.",
		Buckets: prometheus.DefBuckets,
	})
)

// ObserveClaimToComplete records the latency between a job's claim
// and its terminal outcome.
func ObserveClaimToComplete(claimedAt time.Time) {
	ClaimToCompleteLatency.Observe(time.Since(claimedAt).Seconds())
}
