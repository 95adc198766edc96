package ledger

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/lunokit/luno-auto-trader/internal/state"
)

// StateFile is the persisted compound ledger document.
const StateFile = "compound_state.json"

// Entry is one recorded profit split. Entries are append-only; the running
// totals always equal the sums of the corresponding entry fields.
type Entry struct {
	Timestamp   time.Time `json:"timestamp"`
	Profit      float64   `json:"profit"`
	Reinvest    float64   `json:"reinvest"`
	Savings     float64   `json:"savings"`
	ReinvestPct float64   `json:"reinvest_pct"`
	TradeID     string    `json:"trade_id"`
}

// Stats summarizes the ledger for reporting.
type Stats struct {
	TotalProfit      float64    `json:"total_profit"`
	TotalReinvested  float64    `json:"total_reinvested"`
	TotalSavings     float64    `json:"total_savings"`
	ReinvestRatioPct float64    `json:"reinvest_ratio_pct"`
	EntryCount       int        `json:"entry_count"`
	LastUpdate       *time.Time `json:"last_update,omitempty"`
}

type persistedLedger struct {
	TotalProfit     float64    `json:"total_profit"`
	TotalReinvested float64    `json:"total_reinvested"`
	TotalSavings    float64    `json:"total_savings"`
	Entries         []Entry    `json:"entries"`
	LastUpdate      *time.Time `json:"last_update,omitempty"`
}

// Ledger is the append-only accounting of realized profit, split into a
// reinvestment bucket and a savings bucket.
type Ledger struct {
	store *state.Store

	mu sync.Mutex
	st persistedLedger
}

// NewLedger loads the persisted ledger, starting empty when the document
// is missing or corrupt. Corruption is logged loudly, never fatal.
func NewLedger(store *state.Store) *Ledger {
	l := &Ledger{store: store}
	if err := store.Load(StateFile, &l.st); err != nil && !os.IsNotExist(err) {
		log.Printf("ledger: failed to load %s: %v, starting empty", StateFile, err)
		l.st = persistedLedger{}
	}
	return l
}

// RecordProfitSplit splits a realized profit into reinvestment and savings
// per reinvestPct (clamped to [0,100]) and appends an entry. Non-positive
// profit is a logged no-op: totals stay unchanged and no entry is added.
func (l *Ledger) RecordProfitSplit(profit, reinvestPct float64, tradeID string) *Entry {
	if profit <= 0 {
		log.Printf("ledger: skipping non-positive profit %.2f (trade %s)", profit, tradeID)
		return nil
	}

	if reinvestPct < 0 {
		reinvestPct = 0
	} else if reinvestPct > 100 {
		reinvestPct = 100
	}
	reinvest := profit * reinvestPct / 100
	savings := profit - reinvest

	now := time.Now()
	entry := Entry{
		Timestamp:   now,
		Profit:      profit,
		Reinvest:    reinvest,
		Savings:     savings,
		ReinvestPct: reinvestPct,
		TradeID:     tradeID,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.st.TotalProfit += profit
	l.st.TotalReinvested += reinvest
	l.st.TotalSavings += savings
	l.st.Entries = append(l.st.Entries, entry)
	l.st.LastUpdate = &now
	l.persistLocked()

	log.Printf("ledger: profit split %.2f -> reinvest %.2f, savings %.2f", profit, reinvest, savings)
	return &entry
}

// ResetReinvestmentBalance zeroes the reinvestment accumulator after the
// funds have actually been redeployed into a new buy. Savings stay intact.
func (l *Ledger) ResetReinvestmentBalance() {
	l.mu.Lock()
	defer l.mu.Unlock()

	old := l.st.TotalReinvested
	l.st.TotalReinvested = 0
	now := time.Now()
	l.st.LastUpdate = &now
	l.persistLocked()

	log.Printf("ledger: reinvestment balance reset (was %.2f)", old)
}

// TotalReinvestable returns the amount currently available to redeploy.
func (l *Ledger) TotalReinvestable() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.TotalReinvested
}

// TotalSavings returns the savings accumulated so far.
func (l *Ledger) TotalSavings() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.TotalSavings
}

// GetStats summarizes the ledger.
func (l *Ledger) GetStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	ratio := 0.0
	if l.st.TotalProfit > 0 {
		ratio = l.st.TotalReinvested / l.st.TotalProfit * 100
	}
	return Stats{
		TotalProfit:      l.st.TotalProfit,
		TotalReinvested:  l.st.TotalReinvested,
		TotalSavings:     l.st.TotalSavings,
		ReinvestRatioPct: ratio,
		EntryCount:       len(l.st.Entries),
		LastUpdate:       l.st.LastUpdate,
	}
}

// RecentEntries returns up to limit of the most recent entries.
func (l *Ledger) RecentEntries(limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.st.Entries) {
		limit = len(l.st.Entries)
	}
	out := make([]Entry, limit)
	copy(out, l.st.Entries[len(l.st.Entries)-limit:])
	return out
}

func (l *Ledger) persistLocked() {
	if err := l.store.Save(StateFile, &l.st); err != nil {
		log.Printf("ledger: failed to save state: %v", err)
	}
}
