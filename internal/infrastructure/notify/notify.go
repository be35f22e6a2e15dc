// Package notify wraps Postgres LISTEN/NOTIFY into a wakeup channel
// for the worker pool. It is a latency optimization only: the
// poll-sleep loop in internal/worker still runs regardless, so a
// dropped or coalesced notification never costs correctness, only a
// few extra seconds of lag (see SPEC_FULL.md §2c).
package notify

import (
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"paysync.backend/pkg/logger"
)

const channel = "payment_job_enqueued"

// Listener wraps a *pq.Listener and exposes a channel the worker pool
// selects on alongside its own ticker.
type Listener struct {
	pqListener *pq.Listener
	Wakeups    chan struct{}
}

// NewListener opens a dedicated LISTEN connection against dsn. It
// does not block; call Start to begin forwarding notifications.
func NewListener(dsn string) *Listener {
	wakeups := make(chan struct{}, 1)
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Error(nil, "notify listener event", zap.Error(err), zap.Int("event_type", int(ev)))
		}
	}
	pqListener := pq.NewListener(dsn, 10*time.Second, time.Minute, reportProblem)
	return &Listener{pqListener: pqListener, Wakeups: wakeups}
}

// Start subscribes to the job-enqueued channel and forwards
// notifications (and the listener's own periodic pings) onto Wakeups
// from a background goroutine until stop is closed or the listener's
// notification channel is closed by Close. Start itself returns as
// soon as the LISTEN succeeds or fails.
func (l *Listener) Start(stop <-chan struct{}) error {
	if err := l.pqListener.Listen(channel); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-stop:
				return
			case n, ok := <-l.pqListener.Notify:
				if !ok {
					return
				}
				_ = n
				l.signal()
			case <-time.After(90 * time.Second):
				// pq.Listener recommends a periodic Ping to detect a
				// half-dead connection; treat it as a harmless extra wakeup.
				_ = l.pqListener.Ping()
				l.signal()
			}
		}
	}()

	return nil
}

func (l *Listener) signal() {
	select {
	case l.Wakeups <- struct{}{}:
	default:
	}
}

// Close releases the underlying connection.
func (l *Listener) Close() error {
	return l.pqListener.Close()
}

// Channel exposes the notification channel name for callers that
// issue NOTIFY directly through their own *sql.DB or *sql.Tx (the job
// queue's Enqueue does this right after its insert commits).
func Channel() string { return channel }
