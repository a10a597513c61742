// Package performance keeps an append-only history of resolution outcomes and
// derives statistics and tuning recommendations from it.
package performance

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
	"github.com/ekaya-inc/ekaya-analyst/pkg/sql"
)

// Thresholds trigger recommendations when exceeded.
type Thresholds struct {
	SlowAverage        time.Duration `yaml:"slow_average" env:"PERF_SLOW_AVERAGE" env-default:"2s"`
	MinSuccessRate     float64       `yaml:"min_success_rate" env:"PERF_MIN_SUCCESS_RATE" env-default:"80"`
	SlowComplexAverage time.Duration `yaml:"slow_complex_average" env:"PERF_SLOW_COMPLEX_AVERAGE" env-default:"3s"`
}

// DefaultThresholds returns the stock recommendation thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SlowAverage:        2 * time.Second,
		MinSuccessRate:     80,
		SlowComplexAverage: 3 * time.Second,
	}
}

// Recommendation messages.
const (
	RecommendIndexes           = "Average query time is high; consider adding indexes"
	RecommendReviewErrors      = "Success rate is low; review error patterns"
	RecommendMaterializedViews = "Complex queries are slow; consider materialized views"
)

// Config configures a Tracker. Zero Thresholds use DefaultThresholds;
// a nil Registerer disables Prometheus export.
type Config struct {
	Thresholds Thresholds
	Registerer prometheus.Registerer
	Clock      clockwork.Clock
}

// Tracker records outcomes. It is safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	records    []models.PerformanceRecord
	thresholds Thresholds
	metrics    *Metrics
	clock      clockwork.Clock
}

// NewTracker creates an empty tracker.
func NewTracker(cfg Config) *Tracker {
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	t := &Tracker{
		thresholds: cfg.Thresholds,
		clock:      cfg.Clock,
	}
	if cfg.Registerer != nil {
		t.metrics = NewMetrics(cfg.Registerer)
	}
	return t
}

// Record appends one outcome, tagging it with the query's complexity.
func (t *Tracker) Record(question, sqlQuery string, elapsed time.Duration, rowCount int, success bool) models.PerformanceRecord {
	rec := models.PerformanceRecord{
		ID:         uuid.New(),
		Question:   question,
		SQL:        sqlQuery,
		Elapsed:    elapsed,
		RowCount:   rowCount,
		Success:    success,
		Complexity: sql.ComplexityTag(sqlQuery),
		RecordedAt: t.clock.Now(),
	}

	t.mu.Lock()
	t.records = append(t.records, rec)
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.observe(rec.Complexity, elapsed.Seconds(), success)
	}
	return rec
}

// Records returns a copy of the history in insertion order.
func (t *Tracker) Records() []models.PerformanceRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.PerformanceRecord(nil), t.records...)
}

// Statistics recomputes summary statistics over the full history.
func (t *Tracker) Statistics() models.PerformanceStats {
	return computeStats(t.Records())
}

func computeStats(records []models.PerformanceRecord) models.PerformanceStats {
	stats := models.PerformanceStats{
		Complexity: map[string]models.ComplexityStats{},
	}
	if len(records) == 0 {
		return stats
	}

	var total time.Duration
	sums := map[string]time.Duration{}
	slowest := 0
	for i, r := range records {
		stats.Total++
		if r.Success {
			stats.Successful++
		}
		stats.TotalRows += r.RowCount
		total += r.Elapsed
		if r.Elapsed > records[slowest].Elapsed {
			slowest = i
		}

		cs := stats.Complexity[r.Complexity]
		cs.Count++
		if r.Elapsed > cs.MaxElapsed {
			cs.MaxElapsed = r.Elapsed
		}
		stats.Complexity[r.Complexity] = cs
		sums[r.Complexity] += r.Elapsed
	}

	for tag, cs := range stats.Complexity {
		cs.AvgElapsed = sums[tag] / time.Duration(cs.Count)
		stats.Complexity[tag] = cs
	}

	stats.Failed = stats.Total - stats.Successful
	stats.SuccessRate = float64(stats.Successful) / float64(stats.Total) * 100
	stats.AvgElapsed = total / time.Duration(stats.Total)
	s := records[slowest]
	stats.Slowest = &s
	return stats
}

// Recommendations derives advice from the current statistics.
// An empty history yields no recommendations.
func (t *Tracker) Recommendations() []string {
	stats := t.Statistics()
	recs := []string{}
	if stats.Total == 0 {
		return recs
	}

	if stats.AvgElapsed > t.thresholds.SlowAverage {
		recs = append(recs, RecommendIndexes)
	}
	if stats.SuccessRate < t.thresholds.MinSuccessRate {
		recs = append(recs, RecommendReviewErrors)
	}
	if cs, ok := stats.Complexity[sql.ComplexityComplex]; ok && cs.AvgElapsed > t.thresholds.SlowComplexAverage {
		recs = append(recs, RecommendMaterializedViews)
	}
	return recs
}

// Clear empties the history. Exported metrics are cumulative and are not reset.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = nil
}
