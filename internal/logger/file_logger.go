package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger represents a session file logger for trading activities
type Logger struct {
	pair    string
	logFile *os.File
	logger  *log.Logger
	mu      sync.Mutex
	logDir  string
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// NewLogger creates a new file logger for the specified trading pair
func NewLogger(pair string) (*Logger, error) {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", pair, timestamp)
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		pair:    pair,
		logFile: file,
		logger:  log.New(file, "", 0),
		logDir:  logDir,
	}

	l.writeSessionHeader()

	return l, nil
}

// writeSessionHeader writes a session start header to the log
func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
🚀 AUTO TRADING SESSION STARTED
================================================================================
Pair: %s
Started: %s
Log File: %s_%s.log
================================================================================
`, l.pair, time.Now().Format("2006-01-02 15:04:05"),
		l.pair, time.Now().Format("2006-01-02"))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Println(fmt.Sprintf("[%s] [%s] %s", timestamp, level, message))
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs a trading action
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Status logs market status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogMarketStatus logs a full market status block for one decision cycle
func (l *Logger) LogMarketStatus(currentPrice, referencePrice float64, trend string, holding float64, buyPrice float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	statusLog := fmt.Sprintf(`
[%s] [STATUS] ==================== MARKET STATUS ====================
💰 Current Price: %.2f | Reference: %.2f
📊 Trend: %s`,
		timestamp, currentPrice, referencePrice, trend)

	if holding > 0 && buyPrice > 0 {
		changePct := (currentPrice - buyPrice) / buyPrice * 100
		statusLog += fmt.Sprintf(`
📈 Entry Price: %.2f | Holding: %.8f
💹 Unrealized: %.2f%%`, buyPrice, holding, changePct)
	} else {
		statusLog += "\n📊 Position Status: NO ACTIVE POSITION"
	}

	statusLog += "\n=========================================================="

	l.logger.Println(statusLog)
}

// LogTradeExecution logs trade execution details
func (l *Logger) LogTradeExecution(side, orderID string, volume, price float64, details string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	tradeLog := fmt.Sprintf(`
[%s] [TRADE] ==================== %s EXECUTED ====================
✅ Order ID: %s
📦 Volume: %.8f %s
💰 Price: %.2f
📝 Details: %s
=============================================================`,
		timestamp, side, orderID, volume, l.pair, price, details)

	l.logger.Println(tradeLog)
}

// LogProfitSplit logs a realized profit split
func (l *Logger) LogProfitSplit(profit, reinvest, savings, reinvestPct float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	splitLog := fmt.Sprintf(`
[%s] [TRADE] ==================== PROFIT REALIZED ====================
🎯 Profit: %.2f
🔄 Reinvested: %.2f (%.0f%%)
🏦 Saved: %.2f
==============================================================`,
		timestamp, profit, reinvest, reinvestPct, savings)

	l.logger.Println(splitLog)
}

// LogCredentialRefresh logs a credential hot-reload
func (l *Logger) LogCredentialRefresh(changedFields []string) {
	l.Info("Credentials reloaded, changed: %v", changedFields)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		timestamp := time.Now().Format("2006-01-02 15:04:05")
		footer := fmt.Sprintf(`
================================================================================
🛑 AUTO TRADING SESSION ENDED
================================================================================
Ended: %s
================================================================================

`, timestamp)
		l.logger.Print(footer)

		return l.logFile.Close()
	}
	return nil
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", l.pair, timestamp)
	return filepath.Join(l.logDir, filename)
}
