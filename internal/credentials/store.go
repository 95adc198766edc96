package credentials

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// DefaultCheckInterval is the minimum time between fingerprint checks of
// the config source.
const DefaultCheckInterval = 5 * time.Second

// Snapshot is one consistent view of the credential configuration.
type Snapshot struct {
	APIKey    string
	APISecret string
	Pair      string
	DryRun    bool
}

// Valid reports whether both key and secret are set.
func (s Snapshot) Valid() bool {
	return s.APIKey != "" && s.APISecret != ""
}

// Store is the process-wide, hot-reloadable source of API credentials.
// It watches a .env key=value file and detects external edits via a
// SHA-256 content fingerprint. Checks are rate-limited so callers can
// refresh on every loop iteration without touching the filesystem each
// time.
type Store struct {
	envFile       string
	checkInterval time.Duration

	mu        sync.Mutex
	lastHash  string
	lastCheck time.Time
	current   Snapshot
}

// NewStore creates a store watching envFile. A non-positive interval
// falls back to DefaultCheckInterval.
func NewStore(envFile string, checkInterval time.Duration) *Store {
	if checkInterval <= 0 {
		checkInterval = DefaultCheckInterval
	}
	return &Store{envFile: envFile, checkInterval: checkInterval}
}

// Load reads the config source once at startup. A missing file is not an
// error: the store falls back to process environment variables, matching
// deployments that inject credentials directly.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := godotenv.Read(s.envFile)
	if err != nil {
		log.Printf("credentials: %s not found, using process environment", s.envFile)
		s.current = readSnapshot(envFromProcess())
		return nil
	}

	s.current = readSnapshot(env)
	s.lastHash = s.fileHash()
	log.Printf("credentials: loaded from %s (key %s, pair %s, dry_run %v)",
		s.envFile, MaskSecret(s.current.APIKey), s.current.Pair, s.current.DryRun)
	return nil
}

// CheckForUpdate re-reads the source if the rate-limit window has elapsed
// and its content fingerprint changed. Returns true only when a reload
// actually happened. A transiently unreadable source retains the previous
// snapshot and signals no change.
func (s *Store) CheckForUpdate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkLocked()
}

func (s *Store) checkLocked() bool {
	now := time.Now()
	if now.Sub(s.lastCheck) < s.checkInterval {
		return false
	}
	s.lastCheck = now

	currentHash := s.fileHash()
	if currentHash == "" || currentHash == s.lastHash {
		return false
	}

	env, err := godotenv.Read(s.envFile)
	if err != nil {
		// Keep the previous snapshot; never expose partial credentials
		// because of a transient read error.
		log.Printf("credentials: failed to reload %s: %v", s.envFile, err)
		return false
	}

	updated := readSnapshot(env)
	s.logDiff(s.current, updated)
	s.current = updated
	s.lastHash = currentHash
	return true
}

// Get returns the current snapshot, checking the source for updates first
// so callers always observe eventually-fresh values.
func (s *Store) Get() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkLocked()
	return s.current
}

func (s *Store) fileHash() string {
	data, err := os.ReadFile(s.envFile)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *Store) logDiff(old, updated Snapshot) {
	log.Printf("credentials: change detected in %s, reloading", s.envFile)
	if old.APIKey != updated.APIKey {
		log.Printf("credentials:   api_key: %s -> %s", MaskSecret(old.APIKey), MaskSecret(updated.APIKey))
	}
	if old.APISecret != updated.APISecret {
		log.Printf("credentials:   api_secret: %s -> %s", MaskSecret(old.APISecret), MaskSecret(updated.APISecret))
	}
	if old.Pair != updated.Pair {
		log.Printf("credentials:   pair: %s -> %s", old.Pair, updated.Pair)
	}
	if old.DryRun != updated.DryRun {
		log.Printf("credentials:   dry_run: %v -> %v", old.DryRun, updated.DryRun)
	}
}

// Recognized keys in the config source.
const (
	keyAPIKey    = "LUNO_API_KEY"
	keyAPISecret = "LUNO_API_SECRET"
	keyPair      = "PAIR"
	keyDryRun    = "DRY_RUN"
)

func readSnapshot(env map[string]string) Snapshot {
	pair := env[keyPair]
	if pair == "" {
		pair = "XBTNGN"
	}
	return Snapshot{
		APIKey:    env[keyAPIKey],
		APISecret: env[keyAPISecret],
		Pair:      strings.ToUpper(pair),
		DryRun:    parseBool(env[keyDryRun]),
	}
}

func envFromProcess() map[string]string {
	return map[string]string{
		keyAPIKey:    os.Getenv(keyAPIKey),
		keyAPISecret: os.Getenv(keyAPISecret),
		keyPair:      os.Getenv(keyPair),
		keyDryRun:    os.Getenv(keyDryRun),
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// MaskSecret hides all but the first and last four characters of a secret
// for diagnostic output.
func MaskSecret(secret string) string {
	if secret == "" {
		return "not set"
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}
