package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lunokit/luno-auto-trader/internal/config"
	"github.com/lunokit/luno-auto-trader/internal/credentials"
	"github.com/lunokit/luno-auto-trader/internal/ledger"
	"github.com/lunokit/luno-auto-trader/internal/logger"
	"github.com/lunokit/luno-auto-trader/internal/monitor"
	"github.com/lunokit/luno-auto-trader/internal/monitoring"
	"github.com/lunokit/luno-auto-trader/internal/notifications"
	"github.com/lunokit/luno-auto-trader/internal/state"
	"github.com/lunokit/luno-auto-trader/internal/strategy"
	"github.com/lunokit/luno-auto-trader/internal/tradelog"
	"github.com/lunokit/luno-auto-trader/internal/trend"
)

func TestBotComponents(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.Trading.StateDir = dir
	cfg.Trading.TradeLogPath = filepath.Join(dir, "trades.csv")

	healthChecker := monitoring.NewHealthChecker()
	if healthChecker == nil {
		t.Fatal("Failed to create health checker")
	}

	notifier := notifications.NoopNotifier{}
	if err := notifier.SendAlert("info", "test"); err != nil {
		t.Fatalf("Noop notifier must never fail: %v", err)
	}

	states, err := state.NewStore(dir)
	if err != nil {
		t.Fatalf("Failed to create state store: %v", err)
	}

	engine := strategy.NewEngine(states)
	if engine == nil {
		t.Fatal("Failed to create strategy engine")
	}

	analyzer := trend.NewAnalyzer(trend.DefaultShortPeriod, trend.DefaultLongPeriod)
	compound := ledger.NewLedger(states)
	trades := tradelog.NewLog(cfg.Trading.TradeLogPath)
	status := monitor.NewStatusStore(states)

	t.Setenv("LUNO_API_KEY", "testkey")
	t.Setenv("LUNO_API_SECRET", "testsecret")
	t.Setenv("DRY_RUN", "true")

	creds := credentials.NewStore(filepath.Join(dir, "absent.env"), time.Hour)
	if err := creds.Load(); err != nil {
		t.Fatalf("Failed to load credentials: %v", err)
	}

	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change working directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(origDir); err != nil {
			t.Fatalf("Failed to restore working directory: %v", err)
		}
	})
	session, err := logger.NewLogger("XBTNGN")
	if err != nil {
		t.Fatalf("Failed to open session log: %v", err)
	}
	defer session.Close()

	bot, err := NewBot(cfg, creds, engine, analyzer, compound, trades, status, states, notifier, healthChecker, session)
	if err != nil {
		t.Fatalf("Failed to initialize bot: %v", err)
	}
	if bot.Client() == nil {
		t.Fatal("Bot must expose an exchange client")
	}

	t.Log("All components initialized successfully")
}

func TestPairAssetSplit(t *testing.T) {
	cases := []struct {
		pair  string
		base  string
		quote string
	}{
		{"XBTNGN", "XBT", "NGN"},
		{"SOLUSDT", "SOL", "USDT"},
		{"ETHZAR", "ETH", "ZAR"},
		{"usdcngn", "USDC", "NGN"},
		{"XBT", "XBT", ""},
	}
	for _, tc := range cases {
		if got := baseAsset(tc.pair); got != tc.base {
			t.Errorf("baseAsset(%q) = %q, want %q", tc.pair, got, tc.base)
		}
		if got := quoteAsset(tc.pair); got != tc.quote {
			t.Errorf("quoteAsset(%q) = %q, want %q", tc.pair, got, tc.quote)
		}
	}
}
