package data

import (
	"database/sql"
	"time"

	"inviqa/request-basket/config"
	"inviqa/request-basket/log"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v4/stdlib"
)

const (
	connectionAttempts    = 30
	maxOpenConnections    = 20
	maxIdleConnections    = 5
	maxConnectionLifetime = time.Minute * 1

	pgxDriverName = "pgx"
)

func init() {
	setupLoggers()
}

func setupLoggers() {
	err := mysql.SetLogger(log.Logger)
	if err != nil {
		log.Logger.WithError(err).Fatalf("unable to set up JSON logger for MySQL driver")
	}
}

// NewDB opens the metadata store, waits for it to accept connections and
// applies migrations unless they are disabled. The returned func closes the
// pool.
func NewDB(cfg *config.Config) (*sql.DB, func()) {
	log.Logger.Debug("connecting to the database")

	db, err := sql.Open(driverName(cfg.DBDriver), cfg.GetDSN())
	if err != nil {
		log.Logger.Fatalf("unable to connect to the database: %s", err)
	}

	db.SetMaxOpenConns(maxOpenConnections)
	db.SetMaxIdleConns(maxIdleConnections)
	db.SetConnMaxLifetime(maxConnectionLifetime)

	connectToDatabase(db, connectionAttempts, time.Second)
	MigrateDatabase(db, cfg)

	return db, func() {
		if err := db.Close(); err != nil {
			log.Logger.WithError(err).Error("error closing database during shutdown process")
		}
	}
}

func driverName(d config.DbDriver) string {
	if d.Postgres() {
		return pgxDriverName
	}
	return d.String()
}

type pinger interface {
	Ping() error
}

func connectToDatabase(db pinger, attempts int, wait time.Duration) {
	tries := attempts
	for {
		err := db.Ping()
		if err == nil {
			return
		}

		time.Sleep(wait)
		tries--
		log.Logger.Infof("database is not available (err: %s), retrying %d more time(s)", err, tries)

		if tries == 0 {
			log.Logger.Fatalf("database did not become available within %d connection attempts", attempts)
		}
	}
}
