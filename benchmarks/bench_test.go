//go:build benchmarks
// +build benchmarks

package benchmarks

import (
	"context"
	"database/sql"
	"fmt"

	"inviqa/request-basket/basket"
	"inviqa/request-basket/basket/data"
	benchkafka "inviqa/request-basket/benchmarks/kafka"
	"inviqa/request-basket/blob"
	"inviqa/request-basket/config"
	"inviqa/request-basket/kafka"
	"inviqa/request-basket/notify"
	pushTest "inviqa/request-basket/push/test"
)

const benchEndpoint = "bench01"

var (
	cfg          *config.Config
	db           *sql.DB
	svc          *basket.Service
	registry     *basket.Registry
	dispatcher   *notify.Dispatcher
	syncProducer *benchkafka.SyncProducer
)

func init() {
	cfg = createConfig()

	db, _ = data.NewDB(cfg)

	blobs, _, err := blob.NewStore(cfg)
	if err != nil {
		panic(err)
	}

	repo := basket.NewRepository(db, cfg)
	registry = basket.NewRegistry(repo)
	syncProducer = benchkafka.NewSyncProducer(cfg.KafkaHost)

	notifier := notify.NewNotifier(registry, pushTest.NewMockPusher(), cfg.GetPushTimeout()).
		MirrorTo(kafka.NewPublisherWithProducer(syncProducer, cfg.KafkaEventsTopic))
	dispatcher = notify.NewDispatcher(notifier, cfg.NotifyQueueSize, nil)
	dispatcher.Start(cfg.NotifyConcurrency)

	svc = basket.NewService(repo, blobs, dispatcher)
}

func resetBasket() {
	for _, table := range []string{basket.ConnectionsTable, basket.RequestsTable, basket.BasketsTable} {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s;", table)); err != nil {
			panic(fmt.Sprintf("an error occurred cleaning the %s table for benchmarks: %s", table, err))
		}
	}

	ctx := context.Background()
	if err := svc.Create(ctx, benchEndpoint); err != nil {
		panic(fmt.Sprintf("could not create the benchmark basket: %s", err))
	}
	for i := 0; i < numViewers; i++ {
		if err := registry.Subscribe(ctx, fmt.Sprintf("viewer-%d", i), benchEndpoint); err != nil {
			panic(fmt.Sprintf("could not subscribe a benchmark viewer: %s", err))
		}
	}
}

func createConfig() *config.Config {
	cfg = &config.Config{
		DBHost:            "localhost",
		DBPort:            13306,
		DBUser:            "request-basket",
		DBPass:            "request-basket",
		DBSchema:          "request-basket",
		DBDriver:          config.MySQL,
		BlobDriver:        config.Redis,
		RedisAddr:         "localhost:16379",
		RedisKeyPrefix:    "basket:bench:",
		KafkaHost:         []string{"localhost:9092"},
		KafkaEventsTopic:  "benchBasketEvents",
		NotifyConcurrency: 4,
		NotifyQueueSize:   100,
		PushTimeoutMs:     500,
	}

	return cfg
}
