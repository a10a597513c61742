package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sqlutil "github.com/ekaya-inc/ekaya-analyst/pkg/sql"
)

func serveSQL(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewSQLHandler(nil, zap.NewNop()).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestSQLHandler_Validate(t *testing.T) {
	rec := serveSQL(t, "/api/sql/validate", `{"sql":"DELETE FROM customers"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var verdict sqlutil.Verdict
	decodeEnvelope(t, rec, &verdict)
	assert.False(t, verdict.Valid)
	assert.NotEmpty(t, verdict.Errors)

	rec = serveSQL(t, "/api/sql/validate", `{"sql":"SELECT name FROM customers WHERE id = 1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	verdict = sqlutil.Verdict{}
	decodeEnvelope(t, rec, &verdict)
	assert.True(t, verdict.Valid)
	assert.Empty(t, verdict.Errors)
}

func TestSQLHandler_Explain(t *testing.T) {
	rec := serveSQL(t, "/api/sql/explain", `{"sql":"SELECT region, SUM(total) FROM orders o JOIN customers c ON o.customer_id = c.id GROUP BY region"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var data ExplainResponse
	decodeEnvelope(t, rec, &data)
	assert.Equal(t, "medium", data.ComplexityTag)
	require.Len(t, data.Tables, 2)
	assert.Equal(t, "orders", data.Tables[0].Name)
	assert.Equal(t, "joined", data.Tables[1].Role)
	require.Len(t, data.Aggregations, 1)
	assert.Equal(t, "SUM", data.Aggregations[0].Function)
}

func TestSQLHandler_Lint_SpeedRatingOnlyWithElapsed(t *testing.T) {
	rec := serveSQL(t, "/api/sql/lint", `{"sql":"SELECT * FROM orders"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var analysis sqlutil.Analysis
	decodeEnvelope(t, rec, &analysis)
	assert.Empty(t, analysis.SpeedRating)
	assert.NotEmpty(t, analysis.Issues)

	rec = serveSQL(t, "/api/sql/lint", `{"sql":"SELECT * FROM orders","elapsed_ms":50}`)
	require.Equal(t, http.StatusOK, rec.Code)
	analysis = sqlutil.Analysis{}
	decodeEnvelope(t, rec, &analysis)
	assert.NotEmpty(t, analysis.SpeedRating)
}

func TestSQLHandler_RequiresSQL(t *testing.T) {
	for _, path := range []string{"/api/sql/validate", "/api/sql/explain", "/api/sql/lint"} {
		rec := serveSQL(t, path, `{"sql":"  "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)

		rec = serveSQL(t, path, `not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}
