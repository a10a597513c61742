package sql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_CleanQuery(t *testing.T) {
	a := Analyze("SELECT name FROM customers WHERE id = 1 LIMIT 10", 0)

	assert.Equal(t, 10.0, a.Score)
	assert.Empty(t, a.Issues)
	assert.Empty(t, a.SpeedRating)
	require.NotEmpty(t, a.IndexHints)
	assert.Equal(t, "id", a.IndexHints[0].Column)
	assert.Equal(t, "Scan customers", a.Plan[0])
	assert.Equal(t, "Return final result set", a.Plan[len(a.Plan)-1])
}

func TestAnalyze_SelectStarAndOr(t *testing.T) {
	a := Analyze("SELECT * FROM orders WHERE status = 'open' OR status = 'new'", 0)

	// 10 - 2 (select star) - 1 (or) + 0.5 (where)
	assert.Equal(t, 7.5, a.Score)

	issues := make([]string, 0, len(a.Issues))
	for _, issue := range a.Issues {
		issues = append(issues, issue.Issue)
	}
	assert.Contains(t, issues, "Using SELECT *")
	assert.Contains(t, issues, "OR conditions in WHERE clause")
}

func TestAnalyze_CommaJoin(t *testing.T) {
	a := Analyze("SELECT a.id FROM a, b", 0)

	require.NotEmpty(t, a.Issues)
	assert.Equal(t, SeverityHigh, a.Issues[len(a.Issues)-1].Severity)
}

func TestAnalyze_JoinIndexHints(t *testing.T) {
	a := Analyze("SELECT c.name FROM orders o JOIN customers c ON o.customer_id = c.id ORDER BY c.name", 0)

	var columns []string
	for _, h := range a.IndexHints {
		columns = append(columns, h.Column)
	}
	assert.Equal(t, []string{"customer_id", "id"}, columns[:2])
	assert.Contains(t, a.Suggestions, "Ensure JOIN columns are indexed")
	assert.Contains(t, a.Suggestions, "Add LIMIT when ordering to reduce the result set")
}

func TestAnalyze_IndexHintsCapped(t *testing.T) {
	sqlQuery := "SELECT a.x FROM a JOIN b ON a.c1 = b.c2 JOIN c ON b.c3 = c.c4 JOIN d ON c.c5 = d.c6 WHERE c7 = 1 ORDER BY c8"
	a := Analyze(sqlQuery, 0)

	assert.Len(t, a.IndexHints, maxIndexHints)
}

func TestAnalyze_ScoreIsBounded(t *testing.T) {
	sqlQuery := "SELECT * FROM a JOIN b ON a.id = b.id JOIN c ON b.id = c.id JOIN d ON c.id = d.id JOIN e ON d.id = e.id " +
		"WHERE a.x NOT IN (SELECT y FROM f) OR CAST(a.z AS INT) = 1"
	a := Analyze(sqlQuery, 0)

	assert.GreaterOrEqual(t, a.Score, 0.0)
	assert.LessOrEqual(t, a.Score, 10.0)
}

func TestAnalyze_SpeedRating(t *testing.T) {
	a := Analyze("SELECT 1", 250*time.Millisecond)
	assert.Equal(t, "fast", a.SpeedRating)
}

func TestRateSpeed(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    string
	}{
		{10 * time.Millisecond, "blazing fast"},
		{100 * time.Millisecond, "fast"},
		{700 * time.Millisecond, "good"},
		{2 * time.Second, "acceptable"},
		{5 * time.Second, "slow, optimization needed"},
	}

	for _, tt := range tests {
		t.Run(tt.elapsed.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, RateSpeed(tt.elapsed))
		})
	}
}
