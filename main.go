package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/privai-labs/privai-agent/internal/browser"
	"github.com/privai-labs/privai-agent/internal/config"
	"github.com/privai-labs/privai-agent/internal/connect"
	"github.com/privai-labs/privai-agent/internal/logging"
	"github.com/privai-labs/privai-agent/internal/monitor"
	"github.com/privai-labs/privai-agent/internal/notifier"
	"github.com/privai-labs/privai-agent/internal/platform"
	"github.com/privai-labs/privai-agent/internal/report"
	"github.com/privai-labs/privai-agent/internal/scheduler"
	"github.com/privai-labs/privai-agent/internal/server"
	"github.com/privai-labs/privai-agent/internal/session"
	"github.com/privai-labs/privai-agent/internal/state"
	"github.com/privai-labs/privai-agent/internal/transcribe"
)

func main() {
	// Load or create configuration
	cfg, err := config.Load()
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.Default()
			if saveErr := cfg.Save(); saveErr == nil {
				if path, pathErr := config.ConfigPath(); pathErr == nil {
					logging.New("info").WithField("path", path).Info("created default config")
				}
			}
		} else {
			cfg = config.Default()
		}
	}

	logger := logging.New(cfg.Agent.LogLevel)
	log := logging.Component(logger, "main")

	dataDir, err := config.DataDir()
	if err != nil {
		log.WithError(err).Fatal("failed to resolve data directory")
	}

	store := state.Open(filepath.Join(dataDir, "state.db"), logging.Component(logger, "state"))
	defer store.Close()

	sessions := session.NewStore(filepath.Join(dataDir, "sessions.json"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver, err := browser.NewDriver(ctx, cfg.Browser.Headless, sessions, store, logging.Component(logger, "browser"))
	if err != nil {
		log.WithError(err).Fatal("failed to start browser")
	}
	defer driver.Close()

	manager := connect.NewManager(driver, store, logging.Component(logger, "connect"))

	var transcriber monitor.Transcriber
	if cfg.Transcription.Enabled {
		transcriber = transcribe.New(cfg.Transcription.Endpoint, logging.Component(logger, "transcribe"))
	}

	hub := server.NewHub(logging.Component(logger, "hub"))
	onActivity := func(a state.Activity) { hub.Broadcast(a) }

	monitors := make(map[platform.Platform]*monitor.Monitor, len(platform.All()))
	for _, p := range platform.All() {
		monitors[p] = monitor.New(p, store, transcriber, onActivity, logging.Component(logger, "monitor"))
	}
	gate := monitor.NewGate(store, browser.AttachClickHook, logging.Component(logger, "monitor"))

	driver.Bind(manager, gate, monitors)

	// Reopen monitoring tabs for platforms the user already connected.
	if store.MonitoringAllowed() {
		for p, st := range store.LoadPlatforms() {
			if !st.Connected || !st.Monitor {
				continue
			}
			if _, err := driver.OpenMonitorTab(ctx, p); err != nil {
				log.WithField("platform", p).WithError(err).Warn("failed to open monitor tab")
			}
		}
	}

	if cfg.Report.Enabled {
		if err := scheduleReports(cfg, store, logging.Component(logger, "report")); err != nil {
			log.WithError(err).Warn("daily report disabled")
		}
	}

	srv := &http.Server{
		Addr:    cfg.Agent.ListenAddr,
		Handler: server.New(store, manager, hub, logging.Component(logger, "server")).Handler(),
	}
	go func() {
		log.WithField("addr", cfg.Agent.ListenAddr).Info("control API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("control API failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("control API shutdown failed")
	}
}

// scheduleReports wires the daily exposure report job.
func scheduleReports(cfg *config.Config, store *state.Store, log *logrus.Entry) error {
	sched, err := scheduler.New(cfg.Report.Timezone, log)
	if err != nil {
		return err
	}

	builder, err := report.New(cfg.Report.MaxEntries)
	if err != nil {
		return err
	}
	sender, err := notifier.NewFromConfig(cfg.Email)
	if err != nil {
		return err
	}

	job := func(ctx context.Context) error {
		entries, err := store.ActivitySince(time.Now().Add(-24 * time.Hour))
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		r, err := builder.Build(entries)
		if err != nil {
			return err
		}
		return sender.SendReport(r, cfg.Email.ToAddr)
	}

	if err := sched.AddDailyJob("exposure-report", cfg.Report.Time, job); err != nil {
		return err
	}
	sched.Start()
	return nil
}
