package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	syncAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "obsessless",
			Name:      "sync_dispatch_attempts_total",
			Help:      "Sync queue dispatch attempts by entity and outcome.",
		},
		[]string{"entity", "outcome"},
	)

	quarantined = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "obsessless",
			Name:      "sync_items_quarantined_total",
			Help:      "Queue items moved to quarantine after exhausting retries.",
		},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "obsessless",
			Name:      "sync_queue_depth",
			Help:      "Current number of pending sync queue items.",
		},
	)

	remindersFired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "obsessless",
			Name:      "reminders_fired_total",
			Help:      "Reminder events published by the scheduler.",
		},
	)

	achievementsUnlocked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "obsessless",
			Name:      "achievements_unlocked_total",
			Help:      "Achievements unlocked across all users.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(syncAttempts, quarantined, queueDepth, remindersFired, achievementsUnlocked)
	})
}

// IncDispatch increments the dispatch counter for an entity/outcome pair.
func IncDispatch(entity, outcome string) {
	syncAttempts.WithLabelValues(entity, outcome).Inc()
}

// IncQuarantined counts a quarantine transfer.
func IncQuarantined() { quarantined.Inc() }

// SetQueueDepth records the pending queue length.
func SetQueueDepth(n int) { queueDepth.Set(float64(n)) }

// IncReminderFired counts a published reminder event.
func IncReminderFired() { remindersFired.Inc() }

// IncAchievementUnlocked counts an unlock.
func IncAchievementUnlocked() { achievementsUnlocked.Inc() }
