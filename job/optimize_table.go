package job

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"inviqa/request-basket/basket"
	"inviqa/request-basket/config"
	"inviqa/request-basket/log"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

// Tables that see the most row churn: requests are cleared in bulk and
// connections come and go with every viewer.
var optimizedTables = []string{
	basket.RequestsTable,
	basket.ConnectionsTable,
	basket.BasketsTable,
}

type Optimizer interface {
	Execute(ctx context.Context) error
	EnableSideCarProxyQuit(proxyUrl string)
}

type optimizeTables struct {
	Db         *sql.DB
	TableNames []string
	Product    newrelic.DatastoreProduct
	statement  string
	SidecarQuitter
}

// RunOptimize reclaims space in the basket tables. It returns the process
// exit code.
func RunOptimize(ctx context.Context, db *sql.DB, cfg *config.Config) int {
	j := newOptimizeTableWithDefaultClient(db, optimizedTables, cfg.DBDriver)
	if j == nil {
		log.Logger.WithField("driver", cfg.DBDriver).Error("unable to determine the database driver")
		return 1
	}

	if cfg.SidecarProxyUrl != "" {
		j.EnableSideCarProxyQuit(cfg.SidecarProxyUrl)
	}

	return normalizeExitCode(j.Execute(ctx))
}

func newOptimizeTableWithDefaultClient(db *sql.DB, tableNames []string, dr config.DbDriver) Optimizer {
	return newOptimizeTable(db, tableNames, dr, http.DefaultClient)
}

func newOptimizeTable(db *sql.DB, tableNames []string, dr config.DbDriver, cl httpPoster) Optimizer {
	sc := SidecarQuitter{Client: cl}
	switch true {
	case dr.MySQL():
		return &optimizeTables{
			Db:             db,
			TableNames:     tableNames,
			Product:        newrelic.DatastoreMySQL,
			statement:      "OPTIMIZE TABLE %s;",
			SidecarQuitter: sc,
		}
	case dr.Postgres():
		return &optimizeTables{
			Db:             db,
			TableNames:     tableNames,
			Product:        newrelic.DatastorePostgres,
			statement:      "VACUUM %s;",
			SidecarQuitter: sc,
		}
	}
	return nil
}

// Execute optimizes every table even if an earlier one fails and reports the
// first failure.
func (o *optimizeTables) Execute(ctx context.Context) error {
	var firstErr error
	for _, table := range o.TableNames {
		if err := o.optimize(ctx, table); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if o.QuitSidecar {
		if err := o.Quit(); err != nil {
			return err
		}
	}

	return firstErr
}

func (o *optimizeTables) optimize(ctx context.Context, table string) error {
	stmt := fmt.Sprintf(o.statement, table)
	defer o.newRelicSegment(ctx, table, stmt).End()

	logger := log.Logger.WithFields(logrus.Fields{"table": table, "product": o.Product})

	if _, err := o.Db.ExecContext(ctx, stmt); err != nil {
		logger.WithError(err).Error("an error occurred optimizing a basket table")
		return err
	}

	logger.Info("optimized basket table successfully")
	return nil
}

func (o *optimizeTables) newRelicSegment(ctx context.Context, table, stmt string) *newrelic.DatastoreSegment {
	return &newrelic.DatastoreSegment{
		Product:            o.Product,
		Collection:         table,
		Operation:          "OPTIMIZE",
		ParameterizedQuery: stmt,
		StartTime:          newrelic.FromContext(ctx).StartSegmentNow(),
	}
}

func normalizeExitCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}
