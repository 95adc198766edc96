package monitor

import (
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lunokit/luno-auto-trader/internal/state"
)

// StatusFile is the persisted supervisory record for the auto-sell
// monitor.
const StatusFile = "auto_sell_status.json"

// Status is the supervisory ground truth for the monitor. Running=true
// must correspond to a live instance: liveness is verified through the
// heartbeat timestamp the monitor refreshes every iteration. The
// supervisor is the sole authority allowed to flip Running to false on a
// detected death; a component may set it to true only for an instance it
// started itself.
type Status struct {
	Running   bool      `json:"running"`
	Handle    string    `json:"handle"`
	TargetPct float64   `json:"target_pct"`
	HeldPairs []string  `json:"held_pairs"`
	Heartbeat time.Time `json:"heartbeat"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsHeld reports whether a pair is excluded from automatic selling.
func (s Status) IsHeld(pair string) bool {
	pair = strings.ToUpper(pair)
	for _, held := range s.HeldPairs {
		if strings.ToUpper(held) == pair {
			return true
		}
	}
	return false
}

// StatusStore owns reads and writes of the status record. Mutations merge
// into the existing record so fields like held pairs survive monitor
// restarts.
type StatusStore struct {
	mu    sync.Mutex
	store *state.Store
}

// NewStatusStore creates a status store on top of the state store.
func NewStatusStore(store *state.Store) *StatusStore {
	return &StatusStore{store: store}
}

// Load returns the current record, or a zero record when none exists.
// A corrupt record falls back to the zero value and logs: the supervisor
// will treat that as a dead monitor and start a fresh one.
func (ss *StatusStore) Load() Status {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.loadLocked()
}

func (ss *StatusStore) loadLocked() Status {
	var status Status
	if err := ss.store.Load(StatusFile, &status); err != nil && !os.IsNotExist(err) {
		log.Printf("monitor: corrupt status record: %v, assuming not running", err)
		return Status{}
	}
	return status
}

// MarkStarted records a freshly started instance under its handle.
func (ss *StatusStore) MarkStarted(handle string, targetPct float64) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	status := ss.loadLocked()
	status.Running = true
	status.Handle = handle
	status.TargetPct = targetPct
	status.Heartbeat = time.Now()
	status.UpdatedAt = time.Now()
	ss.saveLocked(status)
}

// RefreshHeartbeat bumps the liveness timestamp for the named instance.
// Stale handles (a replaced instance still winding down) are ignored.
func (ss *StatusStore) RefreshHeartbeat(handle string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	status := ss.loadLocked()
	if status.Handle != handle {
		return
	}
	status.Heartbeat = time.Now()
	status.UpdatedAt = time.Now()
	ss.saveLocked(status)
}

// MarkStopped clears Running for the named instance. Used by the monitor
// on clean termination and by the supervisor on detected death.
func (ss *StatusStore) MarkStopped(handle string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	status := ss.loadLocked()
	if handle != "" && status.Handle != handle {
		return
	}
	status.Running = false
	status.UpdatedAt = time.Now()
	ss.saveLocked(status)
}

// SetHeld adds or removes a pair from the held set. Held pairs are never
// sold automatically regardless of profit.
func (ss *StatusStore) SetHeld(pair string, hold bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	pair = strings.ToUpper(pair)
	status := ss.loadLocked()

	held := make([]string, 0, len(status.HeldPairs)+1)
	for _, p := range status.HeldPairs {
		if strings.ToUpper(p) != pair {
			held = append(held, strings.ToUpper(p))
		}
	}
	if hold {
		held = append(held, pair)
	}
	status.HeldPairs = held
	status.UpdatedAt = time.Now()
	ss.saveLocked(status)
}

func (ss *StatusStore) saveLocked(status Status) {
	if err := ss.store.Save(StatusFile, &status); err != nil {
		log.Printf("monitor: failed to save status: %v", err)
	}
}
