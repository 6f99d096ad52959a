package sql

import (
	"fmt"
)

type PostgresQueryProvider struct {
	BasketsTable     string
	RequestsTable    string
	ConnectionsTable string
}

func (p PostgresQueryProvider) BasketCountByEndpointSql() string {
	return fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE endpoint = $1`, p.BasketsTable)
}

func (p PostgresQueryProvider) BasketInsertSql() string {
	return fmt.Sprintf(`INSERT INTO %s (endpoint, created_at) VALUES ($1, $2)`, p.BasketsTable)
}

func (p PostgresQueryProvider) BasketDeleteSql() string {
	return fmt.Sprintf(`DELETE FROM %s WHERE endpoint = $1`, p.BasketsTable)
}

func (p PostgresQueryProvider) ExpiredBasketsSql() string {
	return fmt.Sprintf(`SELECT endpoint FROM %s WHERE created_at < $1 ORDER BY created_at ASC`, p.BasketsTable)
}

// RequestInsertSql inserts through a SELECT on the baskets table so a basket
// deleted concurrently results in zero affected rows instead of a dangling row.
// Parameters are cast explicitly because their types cannot be inferred from a
// SELECT list.
func (p PostgresQueryProvider) RequestInsertSql() string {
	q := `INSERT INTO %s (basket_id, arrival_timestamp, method, headers, body_ref)
		SELECT id, CAST($1 AS TIMESTAMP), CAST($2 AS VARCHAR), CAST($3 AS TEXT), CAST($4 AS VARCHAR) FROM %s WHERE endpoint = $5`

	return fmt.Sprintf(q, p.RequestsTable, p.BasketsTable)
}

func (p PostgresQueryProvider) RequestsFetchSql() string {
	q := `SELECT r.id, r.arrival_timestamp, r.method, r.headers, r.body_ref FROM %s r
		INNER JOIN %s b ON b.id = r.basket_id WHERE b.endpoint = $1 ORDER BY r.arrival_timestamp DESC, r.id DESC`

	return fmt.Sprintf(q, p.RequestsTable, p.BasketsTable)
}

func (p PostgresQueryProvider) RequestsDeleteSql() string {
	q := `DELETE FROM %s WHERE basket_id = (SELECT id FROM %s WHERE endpoint = $1) AND id <= $2`

	return fmt.Sprintf(q, p.RequestsTable, p.BasketsTable)
}

func (p PostgresQueryProvider) ConnectionUpsertSql() string {
	q := `INSERT INTO %s (connection_id, basket_id, created_at)
		SELECT CAST($1 AS VARCHAR), id, CAST($2 AS TIMESTAMP) FROM %s WHERE endpoint = $3
		ON CONFLICT (connection_id) DO UPDATE SET basket_id = EXCLUDED.basket_id`

	return fmt.Sprintf(q, p.ConnectionsTable, p.BasketsTable)
}

func (p PostgresQueryProvider) ConnectionDeleteSql() string {
	return fmt.Sprintf(`DELETE FROM %s WHERE connection_id = $1`, p.ConnectionsTable)
}

func (p PostgresQueryProvider) ConnectionsFetchSql() string {
	q := `SELECT c.connection_id FROM %s c INNER JOIN %s b ON b.id = c.basket_id WHERE b.endpoint = $1 ORDER BY c.connection_id ASC`

	return fmt.Sprintf(q, p.ConnectionsTable, p.BasketsTable)
}

func (p PostgresQueryProvider) GetBasketCountSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", p.BasketsTable)
}

func (p PostgresQueryProvider) GetRequestCountSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", p.RequestsTable)
}

func (p PostgresQueryProvider) GetConnectionCountSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", p.ConnectionsTable)
}
