package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lunokit/luno-auto-trader/internal/config"
	"github.com/lunokit/luno-auto-trader/internal/credentials"
	"github.com/lunokit/luno-auto-trader/internal/ledger"
	"github.com/lunokit/luno-auto-trader/internal/logger"
	"github.com/lunokit/luno-auto-trader/internal/monitor"
	"github.com/lunokit/luno-auto-trader/internal/monitoring"
	"github.com/lunokit/luno-auto-trader/internal/notifications"
	"github.com/lunokit/luno-auto-trader/internal/state"
	"github.com/lunokit/luno-auto-trader/internal/strategy"
	"github.com/lunokit/luno-auto-trader/internal/supervisor"
	"github.com/lunokit/luno-auto-trader/internal/tradelog"
	"github.com/lunokit/luno-auto-trader/internal/trend"

	tradesignal "github.com/lunokit/luno-auto-trader/internal/signal"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting Luno auto trader in %s mode", cfg.Environment)

	// Credentials are hot-reloadable; everything else reads them through
	// the store.
	creds := credentials.NewStore(cfg.Trading.EnvFile, credentials.DefaultCheckInterval)
	if err := creds.Load(); err != nil {
		log.Fatalf("Failed to load credentials: %v", err)
	}
	snap := creds.Get()

	states, err := state.NewStore(cfg.Trading.StateDir)
	if err != nil {
		log.Fatalf("Failed to open state directory: %v", err)
	}

	session, err := logger.NewLogger(snap.Pair)
	if err != nil {
		log.Fatalf("Failed to open session log: %v", err)
	}
	defer session.Close()

	engine := strategy.NewEngine(states)
	analyzer := trend.NewAnalyzer(trend.DefaultShortPeriod, trend.DefaultLongPeriod)
	compound := ledger.NewLedger(states)
	trades := tradelog.NewLog(cfg.Trading.TradeLogPath)
	status := monitor.NewStatusStore(states)
	healthChecker := monitoring.NewHealthChecker()

	var notifier notifications.Notifier = notifications.NoopNotifier{}
	if cfg.Notifications.TelegramToken != "" {
		notifier = notifications.NewTelegramNotifier(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID)
	} else {
		log.Println("Telegram notifications disabled (no token configured)")
	}

	bot, err := NewBot(cfg, creds, engine, analyzer, compound, trades, status, states, notifier, healthChecker, session)
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go setupMonitoringServers(cfg, healthChecker)
	if cfg.Webhook.Enabled {
		go serveWebhook(cfg, bot, trades, snap.Pair)
	}

	// The supervisor keeps exactly one auto-sell monitor alive.
	watchdog := supervisor.New(supervisor.Config{
		Status: status,
		Start:  bot.StartMonitor,
	})
	go func() {
		if err := watchdog.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Supervisor stopped: %v", err)
		}
	}()

	go func() {
		if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Bot error: %v", err)
			cancel()
		}
	}()

	if err := notifier.SendAlert("info", "Luno auto trader started"); err != nil {
		log.Printf("Failed to send startup notification: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	cancel()

	if err := notifier.SendAlert("info", "Luno auto trader stopped"); err != nil {
		log.Printf("Failed to send shutdown notification: %v", err)
	}

	if err := trades.PrintSummary(os.Stdout); err != nil {
		log.Printf("Failed to print trade summary: %v", err)
	}

	log.Println("Bot stopped successfully")
}

func setupMonitoringServers(cfg *config.Config, healthChecker *monitoring.HealthChecker) {
	healthMux := http.NewServeMux()
	healthMux.Handle("/health", healthChecker)

	go func() {
		log.Printf("Starting health server on port %d", cfg.Monitoring.HealthPort)
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Monitoring.HealthPort), healthMux); err != nil {
			log.Printf("Health server error: %v", err)
		}
	}()

	go func() {
		log.Printf("Starting Prometheus server on port %d", cfg.Monitoring.PrometheusPort)
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort), monitoring.NewMetricsHandler()); err != nil {
			log.Printf("Prometheus server error: %v", err)
		}
	}()
}

// serveWebhook exposes the inbound signal handler as POST /webhook.
func serveWebhook(cfg *config.Config, bot *Bot, trades *tradelog.Log, defaultPair string) {
	// The exchange is resolved per request so webhook orders always use
	// the client built from the latest credentials.
	handler := tradesignal.New(tradesignal.Config{
		Exchange:      func() tradesignal.Exchange { return bot.Client() },
		TradeLog:      trades,
		DefaultPair:   defaultPair,
		QuotePriority: cfg.Webhook.QuotePriority,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req tradesignal.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		result := handler.Handle(r.Context(), req)
		w.Header().Set("Content-Type", "application/json")
		if result.Status != "ok" {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
		json.NewEncoder(w).Encode(result)
	})

	log.Printf("Starting webhook server on port %d", cfg.Webhook.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Webhook.Port), mux); err != nil {
		log.Printf("Webhook server error: %v", err)
	}
}
