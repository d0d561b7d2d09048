package specification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

// buildSQL composes the specs onto a dry-run query so the generated
// statement can be inspected without a live database.
func buildSQL(t *testing.T, table string, specs ...Specification) (string, []interface{}) {
	t.Helper()

	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	require.NoError(t, err)

	tx := db.Table(table)
	for _, spec := range specs {
		tx = spec.Apply(tx)
	}
	tx = tx.Find(&[]map[string]interface{}{})
	require.NoError(t, tx.Error)
	return tx.Statement.SQL.String(), tx.Statement.Vars
}

func TestTurnRotationSpecs(t *testing.T) {
	sql, vars := buildSQL(t, "conversation_turns",
		BySessionID{SessionID: "s1"},
		TurnNumberBelow{Floor: 5},
	)

	assert.Contains(t, sql, "session_id = ?")
	assert.Contains(t, sql, "turn_number < ?")
	assert.Equal(t, []interface{}{"s1", 5}, vars)
}

func TestSemanticRecallBoundSpec(t *testing.T) {
	sql, vars := buildSQL(t, "turn_embeddings",
		BySessionID{SessionID: "s1"},
		TurnNumberAtMost{Max: 12},
	)

	assert.Contains(t, sql, "turn_number <= ?")
	assert.Equal(t, []interface{}{"s1", 12}, vars)
}

func TestRetentionSweepSpecs(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	sql, vars := buildSQL(t, "sessions",
		ByStatus{Status: "active"},
		LastActiveBefore{Cutoff: cutoff},
	)

	assert.Contains(t, sql, "status = ?")
	assert.Contains(t, sql, "last_active < ?")
	assert.Equal(t, []interface{}{"active", cutoff}, vars)
}

func TestOrderByDirection(t *testing.T) {
	asc, _ := buildSQL(t, "conversation_turns", OrderBy{Field: "turn_number"})
	assert.Contains(t, asc, "ORDER BY turn_number ASC")

	desc, _ := buildSQL(t, "conversation_turns", OrderBy{Field: "turn_number", Desc: true})
	assert.Contains(t, desc, "ORDER BY turn_number DESC")
}
