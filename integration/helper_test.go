//go:build integration
// +build integration

package integration

import (
	"database/sql"
	"net/http/httptest"
	"os"
	"time"

	"inviqa/request-basket/basket"
	"inviqa/request-basket/basket/data"
	"inviqa/request-basket/blob"
	"inviqa/request-basket/config"
	h "inviqa/request-basket/integration/http"
	"inviqa/request-basket/kafka"
	"inviqa/request-basket/log"
	"inviqa/request-basket/notify"
	pushTest "inviqa/request-basket/push/test"
)

const (
	testModeDocker = "docker"
	eventsTopic    = "testBasketEvents"
)

var (
	cfg        *config.Config
	db         *sql.DB
	blobs      blob.Store
	repo       basket.Repository
	registry   *basket.Registry
	pusher     *pushTest.MockPusher
	dispatcher *notify.Dispatcher
	svc        *basket.Service
	allocator  *basket.Allocator
	server     *httptest.Server
)

func init() {
	server = httptest.NewServer(h.GetHttpTestHandlerFunc())
	setupConfig()

	db, _ = data.NewDB(cfg)

	var err error
	blobs, _, err = blob.NewStore(cfg)
	if err != nil {
		panic(err)
	}

	repo = basket.NewRepository(db, cfg)
	registry = basket.NewRegistry(repo)
	pusher = pushTest.NewMockPusher()

	notifier := notify.NewNotifier(registry, pusher, cfg.GetPushTimeout())
	pub, err := kafka.NewPublisher(cfg.KafkaHost, cfg.KafkaEventsTopic, kafka.NewSaramaConfig(false, false))
	if err != nil {
		log.Logger.WithError(err).Warn("Kafka is not available, event mirroring is not tested")
	} else {
		notifier.MirrorTo(pub)
	}

	dispatcher = notify.NewDispatcher(notifier, cfg.NotifyQueueSize, nil)
	dispatcher.Start(cfg.NotifyConcurrency)

	svc = basket.NewService(repo, blobs, dispatcher)
	allocator = basket.NewAllocator(repo, cfg.AllocatorAttempts)

	purgeTables()
}

func setupConfig() *config.Config {
	runInDocker := os.Getenv("GO_TEST_MODE") == testModeDocker

	cfg = &config.Config{
		DBUser:            "request-basket",
		DBPass:            "request-basket",
		DBSchema:          "request-basket",
		BlobDriver:        config.Redis,
		RedisKeyPrefix:    "basket:test:",
		KafkaHost:         []string{"localhost:9092"},
		KafkaEventsTopic:  eventsTopic,
		NotifyConcurrency: 2,
		NotifyQueueSize:   10,
		PushTimeoutMs:     500,
		AllocatorAttempts: 10,
		BasketTTLHours:    1,
		SidecarProxyUrl:   server.URL,
	}

	if os.Getenv("DB_DRIVER") == string(config.MySQL) {
		cfg.DBDriver = config.MySQL
		cfg.DBPort = 13306
	} else {
		cfg.DBDriver = config.Postgres
		cfg.DBPort = 15432
	}
	cfg.RedisAddr = "localhost:16379"

	if runInDocker {
		cfg.DBHost = cfg.DBDriver.String()
		cfg.DBPort = cfg.DBPort - 10000
		cfg.RedisAddr = "redis:6379"
		cfg.KafkaHost = []string{"kafka:29092"}
	} else {
		cfg.DBHost = "localhost"
	}

	return cfg
}

func waitForNotifications() {
	time.Sleep(time.Millisecond * 200)
}
