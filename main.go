package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron"

	"deliverydash/src/config"
	"deliverydash/src/dataset"
	"deliverydash/src/datapush"
	"deliverydash/src/datasource/email"
	"deliverydash/src/metrics"
	"deliverydash/src/server"
	"deliverydash/src/storage"
)

func main() {
	cfg, err := config.LoadConfig("./config", "config.json")
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config: ", err)
	}

	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Close()

	collector := metrics.NewCollector("deliverydash")

	loader := dataset.NewLoader(cfg.Dataset.SheetName)

	// The dashboard cannot render anything without the clean table, so a
	// failed initial load is fatal.
	loadTimer := collector.NewTimer(collector.DatasetLoadDuration)
	table, err := loader.Load(cfg.Dataset.Path)
	loadTimer.ObserveDuration()
	if err != nil {
		logger.Fatal("initial dataset load failed: " + err.Error())
		log.Fatal(err)
	}
	collector.DatasetRows.Set(float64(table.Nrow()))
	logger.Info(fmt.Sprintf("dataset loaded: %s (%d rows)", cfg.Dataset.Path, table.Nrow()))

	// Refresh the cache whenever the dataset file is replaced on disk.
	monitor, err := dataset.NewMonitor(cfg.Dataset.Path)
	if err != nil {
		logger.Warning("file monitor unavailable: " + err.Error())
	} else {
		go func() {
			err := monitor.Watch(func(path string) {
				logger.Info("dataset file changed, reloading: " + path)
				loader.Invalidate(path)
				collector.DatasetReloadsTotal.Inc()

				t := collector.NewTimer(collector.DatasetLoadDuration)
				fresh, err := loader.Load(path)
				t.ObserveDuration()
				if err != nil {
					logger.Error("dataset reload failed: " + err.Error())
					return
				}
				collector.DatasetRows.Set(float64(fresh.Nrow()))
				logger.Info(fmt.Sprintf("dataset reloaded (%d rows)", fresh.Nrow()))
			})
			if err != nil {
				logger.Error("file monitor stopped: " + err.Error())
			}
		}()
		defer monitor.Close()
	}

	c := cron.New()

	// Poll the mailbox for fresh dataset workbooks.
	if cfg.Email.Server != "" {
		mailClient := email.NewEmailClient(cfg.Email.Server, cfg.Email.Username, cfg.Email.Password)
		handler := email.NewDatasetAttachmentHandler(cfg.Email.TargetSubject, cfg.Dataset.DataDir, cfg.Dataset.Path)

		interval := cfg.Email.CheckInterval.Std()
		spec := fmt.Sprintf("@every %s", interval)
		err = c.AddFunc(spec, func() {
			handled, err := email.CheckAndProcessEmails(mailClient, handler, cfg.Email.TargetSubject, logger)
			if err != nil {
				logger.Error("mailbox check failed: " + err.Error())
				collector.RecordIngestError("fetch")
				return
			}
			if handled > 0 {
				collector.IngestAttachmentsTotal.Add(float64(handled))
			}
		})
		if err != nil {
			logger.Error("failed to schedule mailbox check: " + err.Error())
		} else {
			logger.Info(fmt.Sprintf("mailbox polling scheduled (interval %v)", interval))
		}
	}

	// Daily operations report.
	if cfg.Report.SMTPServer != "" || cfg.Report.WebhookURL != "" {
		pusher := datapush.NewPusher(cfg, logger, collector)
		err = c.AddFunc(cfg.Report.Schedule, func() {
			t, err := loader.Load(cfg.Dataset.Path)
			if err != nil {
				logger.Error("report skipped, dataset unavailable: " + err.Error())
				return
			}
			pusher.Run(t)
		})
		if err != nil {
			logger.Error("failed to schedule report push: " + err.Error())
		}
	}

	// Rotate the log alongside the scheduled work.
	c.AddFunc("@hourly", func() {
		if err := logger.CheckRotate(cfg.LogMaxSize); err != nil {
			log.Println("log rotation failed:", err)
		}
	})

	c.Start()
	defer c.Stop()

	srv := server.New(loader, cfg.Dataset.Path, logger, collector)
	httpServer := srv.HTTPServer(cfg)

	go func() {
		logger.Info("http server listening on " + httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed: " + err.Error())
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown: " + err.Error())
	}

	logger.Info("stopped")
}
