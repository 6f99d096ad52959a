package sql

import (
	"fmt"
)

type MysqlQueryProvider struct {
	BasketsTable     string
	RequestsTable    string
	ConnectionsTable string
}

func (m MysqlQueryProvider) BasketCountByEndpointSql() string {
	return fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE endpoint = ?`, m.BasketsTable)
}

func (m MysqlQueryProvider) BasketInsertSql() string {
	return fmt.Sprintf(`INSERT INTO %s (endpoint, created_at) VALUES (?, ?)`, m.BasketsTable)
}

func (m MysqlQueryProvider) BasketDeleteSql() string {
	return fmt.Sprintf(`DELETE FROM %s WHERE endpoint = ?`, m.BasketsTable)
}

func (m MysqlQueryProvider) ExpiredBasketsSql() string {
	return fmt.Sprintf(`SELECT endpoint FROM %s WHERE created_at < ? ORDER BY created_at ASC`, m.BasketsTable)
}

func (m MysqlQueryProvider) RequestInsertSql() string {
	q := `INSERT INTO %s (basket_id, arrival_timestamp, method, headers, body_ref)
		SELECT id, ?, ?, ?, ? FROM %s WHERE endpoint = ?`

	return fmt.Sprintf(q, m.RequestsTable, m.BasketsTable)
}

func (m MysqlQueryProvider) RequestsFetchSql() string {
	q := `SELECT r.id, r.arrival_timestamp, r.method, r.headers, r.body_ref FROM %s r
		INNER JOIN %s b ON b.id = r.basket_id WHERE b.endpoint = ? ORDER BY r.arrival_timestamp DESC, r.id DESC`

	return fmt.Sprintf(q, m.RequestsTable, m.BasketsTable)
}

func (m MysqlQueryProvider) RequestsDeleteSql() string {
	q := `DELETE FROM %s WHERE basket_id = (SELECT id FROM %s WHERE endpoint = ?) AND id <= ?`

	return fmt.Sprintf(q, m.RequestsTable, m.BasketsTable)
}

// ConnectionUpsertSql relies on the clientFoundRows DSN flag so that moving a
// connection to the basket it already belongs to still reports one row.
func (m MysqlQueryProvider) ConnectionUpsertSql() string {
	q := `INSERT INTO %s (connection_id, basket_id, created_at)
		SELECT ?, id, ? FROM %s WHERE endpoint = ?
		ON DUPLICATE KEY UPDATE basket_id = VALUES(basket_id)`

	return fmt.Sprintf(q, m.ConnectionsTable, m.BasketsTable)
}

func (m MysqlQueryProvider) ConnectionDeleteSql() string {
	return fmt.Sprintf(`DELETE FROM %s WHERE connection_id = ?`, m.ConnectionsTable)
}

func (m MysqlQueryProvider) ConnectionsFetchSql() string {
	q := `SELECT c.connection_id FROM %s c INNER JOIN %s b ON b.id = c.basket_id WHERE b.endpoint = ? ORDER BY c.connection_id ASC`

	return fmt.Sprintf(q, m.ConnectionsTable, m.BasketsTable)
}

func (m MysqlQueryProvider) GetBasketCountSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", m.BasketsTable)
}

func (m MysqlQueryProvider) GetRequestCountSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", m.RequestsTable)
}

func (m MysqlQueryProvider) GetConnectionCountSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", m.ConnectionsTable)
}
