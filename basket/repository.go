package basket

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	s "inviqa/request-basket/basket/data/sql"
	"inviqa/request-basket/config"
	"inviqa/request-basket/log"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgconn"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	BasketsTable     = "baskets"
	RequestsTable    = "requests"
	ConnectionsTable = "connections"

	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062
)

type queryProvider interface {
	BasketCountByEndpointSql() string
	BasketInsertSql() string
	BasketDeleteSql() string
	ExpiredBasketsSql() string
	RequestInsertSql() string
	RequestsFetchSql() string
	RequestsDeleteSql() string
	ConnectionUpsertSql() string
	ConnectionDeleteSql() string
	ConnectionsFetchSql() string
	GetBasketCountSql() string
	GetRequestCountSql() string
	GetConnectionCountSql() string
}

// Repository is the metadata store. Uniqueness and existence races are
// settled by the database: a UNIQUE endpoint and INSERT ... SELECT statements
// keyed by endpoint.
type Repository struct {
	db            *sql.DB
	queryProvider queryProvider
}

func NewRepository(db *sql.DB, cfg *config.Config) Repository {
	return NewRepositoryWithQueryProvider(db, newQueryProvider(cfg.DBDriver))
}

func NewRepositoryWithQueryProvider(db *sql.DB, qp queryProvider) Repository {
	return Repository{
		db:            db,
		queryProvider: qp,
	}
}

func (r Repository) BasketExists(ctx context.Context, endpoint string) (bool, error) {
	var count uint
	err := r.db.QueryRowContext(ctx, r.queryProvider.BasketCountByEndpointSql(), endpoint).Scan(&count)
	if err != nil {
		return false, errors.Wrap(err, "error checking basket existence")
	}

	return count > 0, nil
}

// CreateBasket returns ErrConflict when the endpoint is already taken, even if
// the competing insert happened after any existence check.
func (r Repository) CreateBasket(ctx context.Context, endpoint string, createdAt time.Time) error {
	_, err := r.db.ExecContext(ctx, r.queryProvider.BasketInsertSql(), endpoint, createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return errors.Wrap(err, "error inserting basket")
	}

	return nil
}

func (r Repository) DeleteBasket(ctx context.Context, endpoint string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.queryProvider.BasketDeleteSql(), endpoint)
	if err != nil {
		return 0, errors.Wrap(err, "error deleting basket")
	}

	return res.RowsAffected()
}

func (r Repository) ExpiredBaskets(ctx context.Context, olderThan time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.queryProvider.ExpiredBasketsSql(), olderThan)
	if err != nil {
		return nil, errors.Wrap(err, "error fetching expired baskets")
	}
	defer rows.Close()

	var endpoints []string
	for rows.Next() {
		var endpoint string
		if err := rows.Scan(&endpoint); err != nil {
			return nil, errors.Wrap(err, "error scanning expired basket")
		}
		endpoints = append(endpoints, endpoint)
	}

	return endpoints, rows.Err()
}

// InsertRequest stores the request row for the basket with the given endpoint
// and returns the number of rows written, which is zero when the basket does
// not exist (anymore).
func (r Repository) InsertRequest(ctx context.Context, endpoint string, req *Request) (int64, error) {
	headers, err := json.Marshal(req.Headers)
	if err != nil {
		return 0, errors.Wrap(err, "error serialising request headers")
	}

	res, err := r.db.ExecContext(ctx, r.queryProvider.RequestInsertSql(), req.Timestamp, req.Method, string(headers), req.BodyRef, endpoint)
	if err != nil {
		return 0, errors.Wrap(err, "error inserting request")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if n > 0 {
		if id, err := res.LastInsertId(); err == nil {
			req.ID = id
		}
	}

	return n, nil
}

func (r Repository) Requests(ctx context.Context, endpoint string) ([]*Request, error) {
	rows, err := r.db.QueryContext(ctx, r.queryProvider.RequestsFetchSql(), endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "error fetching requests")
	}
	defer rows.Close()

	reqs := []*Request{}
	for rows.Next() {
		var (
			req     = &Request{}
			headers sql.NullString
			bodyRef sql.NullString
		)
		if err := rows.Scan(&req.ID, &req.Timestamp, &req.Method, &headers, &bodyRef); err != nil {
			return nil, errors.Wrap(err, "error scanning request result into memory")
		}

		req.Headers = map[string]string{}
		if headers.Valid && headers.String != "" {
			if err := json.Unmarshal([]byte(headers.String), &req.Headers); err != nil {
				log.Logger.WithFields(logrus.Fields{"request_id": req.ID}).WithError(err).Warn("stored request headers are not valid JSON")
			}
		}
		req.BodyRef = bodyRef.String
		reqs = append(reqs, req)
	}

	return reqs, rows.Err()
}

// DeleteRequests removes the basket's requests up to and including maxID, so
// rows captured after the caller enumerated the basket survive.
func (r Repository) DeleteRequests(ctx context.Context, endpoint string, maxID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.queryProvider.RequestsDeleteSql(), endpoint, maxID)
	if err != nil {
		return 0, errors.Wrap(err, "error deleting requests")
	}

	return res.RowsAffected()
}

// AddConnection registers connID against the basket, moving it if it was
// registered elsewhere. Zero rows means the basket does not exist.
func (r Repository) AddConnection(ctx context.Context, connID, endpoint string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.queryProvider.ConnectionUpsertSql(), connID, at, endpoint)
	if err != nil {
		return 0, errors.Wrap(err, "error registering connection")
	}

	return res.RowsAffected()
}

func (r Repository) RemoveConnection(ctx context.Context, connID string) error {
	_, err := r.db.ExecContext(ctx, r.queryProvider.ConnectionDeleteSql(), connID)
	if err != nil {
		return errors.Wrap(err, "error removing connection")
	}

	return nil
}

func (r Repository) Connections(ctx context.Context, endpoint string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.queryProvider.ConnectionsFetchSql(), endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "error fetching connections")
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "error scanning connection")
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r Repository) GetBasketCount() (uint, error) {
	return r.count(r.queryProvider.GetBasketCountSql())
}

func (r Repository) GetRequestCount() (uint, error) {
	return r.count(r.queryProvider.GetRequestCountSql())
}

func (r Repository) GetConnectionCount() (uint, error) {
	return r.count(r.queryProvider.GetConnectionCountSql())
}

func (r Repository) count(q string) (uint, error) {
	var count uint
	if err := r.db.QueryRow(q).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}

	return false
}

func newQueryProvider(d config.DbDriver) queryProvider {
	switch true {
	case d.Postgres():
		return &s.PostgresQueryProvider{
			BasketsTable:     BasketsTable,
			RequestsTable:    RequestsTable,
			ConnectionsTable: ConnectionsTable,
		}
	case d.MySQL():
		return &s.MysqlQueryProvider{
			BasketsTable:     BasketsTable,
			RequestsTable:    RequestsTable,
			ConnectionsTable: ConnectionsTable,
		}
	}

	return nil
}
