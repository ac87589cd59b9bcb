package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("all tables exist", func(t *testing.T) {
		expectedTables := []string{
			"accounts",
			"deals",
			"aggregated_trades",
		}

		for _, tableName := range expectedTables {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_schema = 'public'
					AND table_name = $1
				)
			`, tableName).Scan(&exists)

			require.NoError(t, err, "failed to check table existence for %s", tableName)
			assert.True(t, exists, "table %s should exist", tableName)
		}
	})

	t.Run("deals table has correct columns", func(t *testing.T) {
		expectedColumns := []string{
			"id", "account_id", "ticket", "position_id", "magic", "symbol",
			"deal_type", "entry", "deal_time", "price", "volume",
			"profit", "commission", "swap", "comment", "created_at",
		}

		for _, colName := range expectedColumns {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.columns
					WHERE table_name = 'deals' AND column_name = $1
				)
			`, colName).Scan(&exists)

			require.NoError(t, err)
			assert.True(t, exists, "column %s should exist in deals table", colName)
		}
	})

	t.Run("aggregated_trades table has correct columns", func(t *testing.T) {
		expectedColumns := []string{
			"id", "account_id", "position_id", "ticket_id", "magic", "symbol",
			"direction", "volume", "entry_time", "entry_price", "exit_time",
			"exit_price", "profit", "commission", "swap", "comment",
			"is_closed", "created_at", "updated_at",
		}

		for _, colName := range expectedColumns {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.columns
					WHERE table_name = 'aggregated_trades' AND column_name = $1
				)
			`, colName).Scan(&exists)

			require.NoError(t, err)
			assert.True(t, exists, "column %s should exist in aggregated_trades table", colName)
		}
	})

	t.Run("indexes exist", func(t *testing.T) {
		expectedIndexes := []struct {
			table string
			index string
		}{
			{"deals", "idx_deals_account_time"},
			{"deals", "idx_deals_account_position"},
			{"aggregated_trades", "idx_trades_account_entry"},
			{"aggregated_trades", "idx_trades_account_open"},
		}

		for _, idx := range expectedIndexes {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM pg_indexes
					WHERE tablename = $1 AND indexname = $2
				)
			`, idx.table, idx.index).Scan(&exists)

			require.NoError(t, err)
			assert.True(t, exists, "index %s should exist on table %s", idx.index, idx.table)
		}
	})

	t.Run("unique constraints exist", func(t *testing.T) {
		var dealUnique bool
		err := testDB.GetRawConn().QueryRow(`
			SELECT EXISTS (
				SELECT FROM pg_constraint c
				JOIN pg_class t ON c.conrelid = t.oid
				WHERE t.relname = 'deals'
				AND c.contype = 'u'
			)
		`).Scan(&dealUnique)
		require.NoError(t, err)
		assert.True(t, dealUnique, "deals should have unique constraint on (account_id, ticket)")

		var tradeUnique bool
		err = testDB.GetRawConn().QueryRow(`
			SELECT EXISTS (
				SELECT FROM pg_constraint c
				JOIN pg_class t ON c.conrelid = t.oid
				WHERE t.relname = 'aggregated_trades'
				AND c.contype = 'u'
			)
		`).Scan(&tradeUnique)
		require.NoError(t, err)
		assert.True(t, tradeUnique, "aggregated_trades should have unique constraint on (account_id, position_id)")
	})
}
