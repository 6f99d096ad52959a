package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	nr "github.com/newrelic/go-agent/v3/newrelic"

	"inviqa/request-basket/basket"
	"inviqa/request-basket/basket/data"
	"inviqa/request-basket/blob"
	"inviqa/request-basket/config"
	h "inviqa/request-basket/http"
	"inviqa/request-basket/job"
	"inviqa/request-basket/kafka"
	"inviqa/request-basket/log"
	"inviqa/request-basket/newrelic"
	"inviqa/request-basket/notify"
	"inviqa/request-basket/prometheus"
	"inviqa/request-basket/push"
)

func main() {
	nrApp, stopAgent := newrelic.StartAgent()
	defer stopAgent()

	ctx, cancel := context.WithCancel(context.Background())
	cfg, err := config.NewConfig()
	if err != nil {
		log.Logger.Fatalf("unable to create configuration: %s", err)
	}
	log.Logger.WithField("config", cfg).Debug("configuration loaded")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Logger.Info("shutdown signal received")
		cancel()
	}()

	db, dbClose := data.NewDB(cfg)
	defer dbClose()

	blobs, blobClose, err := blob.NewStore(cfg)
	if err != nil {
		dbClose()
		log.Logger.Fatalf("unable to open the blob store: %s", err)
	}
	defer blobClose()

	repo := basket.NewRepository(db, cfg)

	var exitCode int
	switch {
	case cfg.RunCleanup:
		jobCtx, txn := newrelic.ContextWithTxn(ctx, "job: RunCleanup()", nrApp)
		exitCode = job.RunCleanup(jobCtx, basket.NewService(repo, blobs, nil), cfg)
		txn.End()
	case cfg.RunOptimize:
		jobCtx, txn := newrelic.ContextWithTxn(ctx, "job: RunOptimize()", nrApp)
		exitCode = job.RunOptimize(jobCtx, db, cfg)
		txn.End()
	default:
		runMainApp(ctx, nrApp, cfg, db, repo, blobs)
	}

	if exitCode > 0 {
		// os.Exit() does not respect defer
		blobClose()
		dbClose()
		stopAgent()
		os.Exit(exitCode)
	}
}

func runMainApp(ctx context.Context, nrApp *nr.Application, cfg *config.Config, db *sql.DB, repo basket.Repository, blobs blob.Store) {
	registry := basket.NewRegistry(repo)
	hub := push.NewHub(registry, repo)

	var pusher push.Pusher = hub
	if cfg.NatsURL != "" {
		nc, err := push.Connect(cfg.NatsURL)
		if err != nil {
			log.Logger.WithError(err).Fatal("unable to start the push relay")
		}
		defer nc.Close()

		relay := push.NewNatsRelay(nc, hub, cfg.GetPushTimeout())
		hub.AddAttacher(relay)
		pusher = relay
	}

	notifier := notify.NewNotifier(registry, pusher, cfg.GetPushTimeout())
	if cfg.KafkaMirrorEnabled() {
		pub, err := kafka.NewPublisher(cfg.KafkaHost, cfg.KafkaEventsTopic, kafka.NewSaramaConfig(cfg.TLSEnable, cfg.TLSSkipVerifyPeer))
		if err != nil {
			log.Logger.WithError(err).Fatal("unable to start the Kafka event mirror")
		}
		defer func() {
			if err := pub.Close(); err != nil {
				log.Logger.WithError(err).Error("error closing kafka publisher during shutdown")
			}
		}()
		notifier.MirrorTo(pub)
	}

	dispatcher := notify.NewDispatcher(notifier, cfg.NotifyQueueSize, nrApp)
	dispatcher.Start(cfg.NotifyConcurrency)

	svc := basket.NewService(repo, blobs, dispatcher)
	api := h.NewAPI(svc, basket.NewAllocator(repo, cfg.AllocatorAttempts), cfg.MaxBodyBytes)

	prometheus.ObserveStore(repo, ctx)

	stores := map[string]h.Pinger{"database": db}
	if p, ok := blobs.(blob.Pinger); ok {
		stores["blob_store"] = h.PingerFunc(p.Ping)
	}

	metrics := h.NewServer(cfg.MetricsAddr, h.NewMetricsHandler(cfg.GetDependencySystemAddresses(), stores))
	go func() {
		if err := h.ListenAndServe(ctx, metrics); err != nil {
			log.Logger.WithError(err).Error("metrics server stopped")
		}
	}()

	srv := h.NewServer(cfg.HTTPAddr, h.NewRouter(api, hub, nrApp))
	if err := h.ListenAndServe(ctx, srv); err != nil {
		log.Logger.WithError(err).Error("API server stopped")
	}

	// captures have stopped: deliver what is queued, then disconnect viewers
	dispatcher.Stop()
	hub.Close()
	log.Logger.Info("request basket stopped")
}
