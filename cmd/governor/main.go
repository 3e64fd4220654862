package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"DialGovernor/internal/config"
	"DialGovernor/internal/dialer"
	"DialGovernor/internal/governor"
	"DialGovernor/internal/leads"
	"DialGovernor/internal/ledger"
	"DialGovernor/internal/model"
	"DialGovernor/internal/override"
	"DialGovernor/internal/poller"
	"DialGovernor/internal/scheduler"
	"DialGovernor/internal/store"
)

// governorStore is everything the wiring needs from one storage backend.
type governorStore interface {
	governor.Store
	leads.Pool
	ledger.Source
	AccountIDs(ctx context.Context) ([]string, error)
	Close() error
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] campaign governor starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Open store; fall back to in-memory for dry runs when SQLite fails.
	var st governorStore
	sq, err := store.NewSQLite(cfg.Database.SQLitePath)
	if err != nil {
		log.Printf("[WARN] open sqlite store failed, using memory store: %v", err)
		st = store.NewMemory()
	} else {
		st = sq
	}
	defer st.Close()

	// Dialer client for the run executor
	var d dialer.Dialer
	if cfg.Dialer.BaseURL != "" {
		d = dialer.NewHTTPDialer(cfg.Dialer.BaseURL, cfg.Dialer.APIKey, cfg.Proxy)
	} else {
		d = dialer.NewNoopDialer()
	}
	log.Printf("[INFO] dialer: %s", d.Name())

	gov := governor.New(
		st,
		leads.NewChecker(st, cfg.MinLeadAge()),
		ledger.NewReader(st),
		d,
		governor.Params{
			Override: override.Params{
				DialsPerHour:   cfg.Throughput.DialsPerHour,
				MinutesPerCall: cfg.Throughput.MinutesPerCall,
				CostPerMinute:  cfg.Throughput.CostPerMinute,
			},
			MaxLeadTarget: cfg.Plan.MaxLeadTarget,
		},
	)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	accounts, err := st.AccountIDs(ctx)
	if err != nil {
		log.Fatalf("[FATAL] list accounts: %v", err)
	}
	log.Printf("[INFO] governing %d account(s)", len(accounts))

	// Auto-schedule triggers
	sched := scheduler.New(gov)
	sched.Sync(ctx, accounts)
	sched.Start()
	defer sched.Stop()

	// One poller per account; settings changes re-sync the schedule.
	for _, accountID := range accounts {
		p := poller.New(gov, accountID, poller.Options{
			StatusInterval:   cfg.StatusInterval(),
			SettingsInterval: cfg.SettingsInterval(),
			MaxFailures:      cfg.Poll.MaxFailures,
			OnChange: func(c poller.Change) {
				log.Printf("[INFO] account %s: %s -> %s", accountID, c.From, c.To)
			},
			OnSettings: func(c *model.CampaignConfig) {
				sched.Apply(ctx, c)
			},
		})
		go p.Run(ctx)
	}

	// Optional: log an immediate evaluation on start
	if os.Getenv("EVALUATE_ON_START") == "true" {
		for _, accountID := range accounts {
			rt, err := gov.Status(ctx, accountID)
			if err != nil {
				log.Printf("[WARN] initial evaluation for %s: %v", accountID, err)
				continue
			}
			log.Printf("[INFO] account %s: %s (%s)", accountID, rt.State, rt.Reason)
		}
	}

	log.Println("[INFO] campaign governor is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] campaign governor stopped")
}
