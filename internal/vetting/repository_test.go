package vetting

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"havenhomes/marketplace-backend/internal/listings"
)

// newDryRunRepository opens gorm against the Postgres dialector without
// connecting, so tests can assert the SQL the queue queries generate.
func newDryRunRepository(t *testing.T) *gormRepository {
	t.Helper()
	db, err := gorm.Open(postgres.Open("host=localhost user=postgres dbname=havenhomes sslmode=disable"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("failed to open dry-run database: %v", err)
	}
	return &gormRepository{db: db}
}

func pageSQL(repo *gormRepository, q QueueQuery) (string, []interface{}) {
	var rows []QueueRow
	stmt := repo.pageQuery(context.Background(), q).Scan(&rows).Statement
	return stmt.SQL.String(), stmt.Vars
}

func TestPageQueryOnlySelectsPendingVetting(t *testing.T) {
	repo := newDryRunRepository(t)

	sql, vars := pageSQL(repo, QueueQuery{Page: 1, PerPage: 20, Sort: SortNewest})

	assert.Contains(t, sql, "listings.status = ")
	assert.Contains(t, vars, listings.StatusPendingVetting)
	assert.Contains(t, sql, "JOIN users ON users.id = listings.owner_id")
}

func TestPageQuerySortOrders(t *testing.T) {
	repo := newDryRunRepository(t)

	cases := map[SortKey]string{
		SortNewest:   "ORDER BY listings.created_at DESC",
		SortOldest:   "ORDER BY listings.created_at ASC",
		SortUrgent:   "ORDER BY COALESCE(listings.ml_validated_at, listings.created_at) ASC",
		SortLocation: "ORDER BY listings.state ASC, listings.city ASC",
	}
	for sort, want := range cases {
		sql, _ := pageSQL(repo, QueueQuery{Page: 1, PerPage: 20, Sort: sort})
		assert.Contains(t, sql, want, string(sort))
	}
}

func TestPriorityFilterAppliedBeforePagination(t *testing.T) {
	repo := newDryRunRepository(t)
	q := QueueQuery{Page: 1, PerPage: 20, Sort: SortNewest, Priority: UrgencyUrgent, State: "Lagos"}

	sql, vars := pageSQL(repo, q)

	// The urgency CASE renders from the same constants UrgencyFor uses.
	assert.Contains(t, sql, fmt.Sprintf("listings.price > %d THEN '%s'", urgentPrice, UrgencyUrgent))
	assert.Contains(t, sql, fmt.Sprintf("listings.price > %d THEN '%s'", highValuePrice, UrgencyHigh))
	assert.Contains(t, sql, fmt.Sprintf(">= %d THEN '%s'", mediumDocuments, UrgencyMedium))
	assert.Contains(t, vars, "urgent")
	assert.Contains(t, vars, "Lagos")

	// The tier filter sits in the WHERE clause, ahead of the sort and the
	// pagination window.
	caseAt := strings.Index(sql, "CASE")
	whereAt := strings.Index(sql, "WHERE")
	orderAt := strings.Index(sql, "ORDER BY")
	limitAt := strings.Index(sql, "LIMIT")
	assert.Greater(t, caseAt, whereAt)
	assert.Less(t, caseAt, orderAt)
	assert.Less(t, orderAt, limitAt)
}

func TestCountQueryRespectsPriorityFilter(t *testing.T) {
	repo := newDryRunRepository(t)
	q := QueueQuery{Page: 1, PerPage: 20, Sort: SortNewest, Priority: UrgencyMedium}

	var total int64
	stmt := repo.filtered(context.Background(), q).Count(&total).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, "count(*)")
	assert.Contains(t, sql, fmt.Sprintf("listings.price > %d THEN '%s'", urgentPrice, UrgencyUrgent))
	assert.Contains(t, stmt.Vars, "medium")
	assert.Contains(t, stmt.Vars, listings.StatusPendingVetting)
}

func TestPageQueryPaginationWindow(t *testing.T) {
	repo := newDryRunRepository(t)

	sql, vars := pageSQL(repo, QueueQuery{Page: 3, PerPage: 20, Sort: SortNewest})
	assert.Contains(t, sql, "LIMIT")
	assert.Contains(t, sql, "OFFSET")
	assert.Contains(t, vars, 20)
	assert.Contains(t, vars, 40)

	// PerPage <= 0 disables the window for exports.
	sql, _ = pageSQL(repo, QueueQuery{Sort: SortNewest})
	assert.NotContains(t, sql, "LIMIT")
	assert.NotContains(t, sql, "OFFSET")
}
