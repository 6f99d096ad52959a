//go:build integration
// +build integration

package integration

import (
	"fmt"
	"strings"
	"time"

	"inviqa/request-basket/basket"
)

func purgeTables() {
	for _, table := range []string{basket.ConnectionsTable, basket.RequestsTable, basket.BasketsTable} {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s;", table)); err != nil {
			panic(fmt.Sprintf("an error occurred cleaning the %s table for tests: %s", table, err))
		}
	}
}

func rebind(q string) string {
	if !cfg.DBDriver.Postgres() {
		return q
	}

	n := 0
	for strings.Contains(q, "?") {
		n++
		q = strings.Replace(q, "?", fmt.Sprintf("$%d", n), 1)
	}
	return q
}

func ageBasket(endpoint string, createdAt time.Time) {
	q := rebind(fmt.Sprintf("UPDATE %s SET created_at = ? WHERE endpoint = ?", basket.BasketsTable))
	if _, err := db.Exec(q, createdAt.UTC(), endpoint); err != nil {
		panic(fmt.Sprintf("an error occurred ageing basket %s: %s", endpoint, err))
	}
}

func countRows(table, endpoint string) int {
	q := rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s t JOIN %s b ON b.id = t.basket_id WHERE b.endpoint = ?", table, basket.BasketsTable))

	var count int
	if err := db.QueryRow(q, endpoint).Scan(&count); err != nil {
		panic(err)
	}
	return count
}
