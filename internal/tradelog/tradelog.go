package tradelog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// timeLayout is the timestamp format written to the trade log.
const timeLayout = "2006-01-02 15:04:05"

var header = []string{"timestamp", "pair", "side", "order_id", "price", "volume", "details"}

// Record is one executed order. The trade log is the single source of
// truth for realized trade history: every profit computation derives from
// replaying this sequence.
type Record struct {
	Timestamp time.Time
	Pair      string
	Side      string // "buy" or "sell"
	OrderID   string
	Price     float64
	Volume    float64
	Details   string
}

// Log is the append-only trade record backed by a CSV file. Appends are
// serialized through a mutex; the file is opened per append so external
// readers always see complete rows.
type Log struct {
	mu   sync.Mutex
	path string
}

// NewLog creates a trade log backed by path.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the backing file path.
func (l *Log) Path() string {
	return l.path
}

// Append writes one record, creating the file with a header row first if
// needed.
func (l *Log) Append(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, statErr := os.Stat(l.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open trade log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("failed to write trade log header: %w", err)
		}
	}

	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	row := []string{
		ts.Format(timeLayout),
		r.Pair,
		r.Side,
		r.OrderID,
		strconv.FormatFloat(r.Price, 'f', -1, 64),
		strconv.FormatFloat(r.Volume, 'f', -1, 64),
		r.Details,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to append trade record: %w", err)
	}
	w.Flush()
	return w.Error()
}

// ReadAll replays every record in the log. A missing file yields an empty
// slice; malformed rows are skipped rather than failing the replay.
func (l *Log) ReadAll() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open trade log: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read trade log: %w", err)
	}

	var records []Record
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == "timestamp" {
			continue
		}
		if len(row) < 7 {
			continue
		}
		ts, _ := time.ParseInLocation(timeLayout, row[0], time.Local)
		price, _ := strconv.ParseFloat(row[4], 64)
		volume, _ := strconv.ParseFloat(row[5], 64)
		records = append(records, Record{
			Timestamp: ts,
			Pair:      row[1],
			Side:      row[2],
			OrderID:   row[3],
			Price:     price,
			Volume:    volume,
			Details:   row[6],
		})
	}
	return records, nil
}

// LastBuy returns the most recent buy record not yet closed by a later
// sell of the same pair, preferring the given pair when one is set.
// Returns nil when every buy in the log already has its sell.
func (l *Log) LastBuy(pair string) (*Record, error) {
	records, err := l.ReadAll()
	if err != nil {
		return nil, err
	}

	sold := make(map[string]bool)
	var fallback *Record
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if isSell(r.Side) {
			sold[strings.ToUpper(r.Pair)] = true
			continue
		}
		if !isBuy(r.Side) || sold[strings.ToUpper(r.Pair)] {
			continue
		}
		if pair == "" || strings.EqualFold(r.Pair, pair) {
			return &r, nil
		}
		if fallback == nil {
			fallback = &r
		}
	}
	return fallback, nil
}

func isBuy(side string) bool {
	switch strings.ToLower(side) {
	case "buy", "b", "bid", "buy_ema":
		return true
	}
	return false
}

func isSell(side string) bool {
	switch strings.ToLower(side) {
	case "sell", "s", "ask", "sell_ema":
		return true
	}
	return false
}
