package supervisor

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/lunokit/luno-auto-trader/internal/monitor"
)

// DefaultCheckInterval is how often the supervisor inspects the monitor
// status record.
const DefaultCheckInterval = 10 * time.Second

// DefaultStaleAfter is how old a heartbeat may be before the instance is
// declared dead. Three missed polls plus slack.
const DefaultStaleAfter = 2 * time.Minute

// Starter launches a replacement monitor instance. It returns the new
// instance's ownership handle. The supervisor calls it at most once per
// detected death.
type Starter func(ctx context.Context) (handle string, err error)

// Supervisor periodically verifies that a monitor claiming to run is
// actually alive, and starts a replacement exactly once when it is not.
// Liveness is judged purely from the persisted status record: a Running
// record whose heartbeat has gone stale is a dead instance, and a record
// that is not Running at all gets a replacement too. The restart hook
// decides whether anything is left to watch; it reports
// monitor.ErrNoOpenPosition when every buy already has its sell, which
// keeps a cleanly finished watch from being revived.
type Supervisor struct {
	status        *monitor.StatusStore
	start         Starter
	checkInterval time.Duration
	staleAfter    time.Duration
}

// Config wires a supervisor.
type Config struct {
	Status        *monitor.StatusStore
	Start         Starter
	CheckInterval time.Duration
	StaleAfter    time.Duration
}

// New creates a supervisor.
func New(cfg Config) *Supervisor {
	check := cfg.CheckInterval
	if check <= 0 {
		check = DefaultCheckInterval
	}
	stale := cfg.StaleAfter
	if stale <= 0 {
		stale = DefaultStaleAfter
	}
	return &Supervisor{
		status:        cfg.Status,
		start:         cfg.Start,
		checkInterval: check,
		staleAfter:    stale,
	}
}

// Run watches the status record until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Check(ctx); err != nil {
				log.Printf("supervisor: check failed: %v", err)
			}
		}
	}
}

// Check performs a single supervision pass. A record running with a
// fresh heartbeat is left alone. Otherwise exactly one replacement is
// started: a stale heartbeat is a dead instance and gets its claim
// cleared first, a record that is not Running goes straight to the
// restart hook. The hook declining with ErrNoOpenPosition is the normal
// idle state, not a failure.
func (s *Supervisor) Check(ctx context.Context) error {
	status := s.status.Load()
	if status.Running && s.alive(status) {
		return nil
	}

	if status.Running {
		age := time.Since(status.Heartbeat).Round(time.Second)
		log.Printf("supervisor: monitor %s dead (heartbeat %s old), restarting", status.Handle, age)

		// Clear the stale claim first so a failed restart leaves an
		// honest record rather than a phantom Running=true.
		s.status.MarkStopped(status.Handle)
	}

	handle, err := s.start(ctx)
	if errors.Is(err, monitor.ErrNoOpenPosition) {
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("supervisor: restarted monitor as %s", handle)
	return nil
}

func (s *Supervisor) alive(status monitor.Status) bool {
	if status.Heartbeat.IsZero() {
		return false
	}
	return time.Since(status.Heartbeat) < s.staleAfter
}
