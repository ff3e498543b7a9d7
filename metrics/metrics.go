package metrics

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var defaultMillisecondsDistribution = view.Distribution(0.01, 0.05, 0.1, 0.3, 0.6, 0.8, 1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50, 65, 80, 100, 130, 160, 200, 250, 300, 400, 500, 650, 800, 1000, 2000, 5000, 10000, 20000, 30000, 50000, 100000, 200000, 500000, 1000000)

var (
	Table, _  = tag.NewKey("table")  // name of table rows are persisted to
	Name, _   = tag.NewKey("name")   // name of running instance of the indexer
	Source, _ = tag.NewKey("source") // kind of stream source (s3, dir)
)

var (
	PersistDuration    = stats.Float64("persist_duration_ms", "Duration of a batch write to one table", stats.UnitMilliseconds)
	PersistRows        = stats.Int64("persist_rows", "Number of rows persisted", stats.UnitDimensionless)
	PersistStatements  = stats.Int64("persist_statements", "Number of insert statements executed", stats.UnitDimensionless)
	PersistFailure     = stats.Int64("persist_failure", "Number of batch writes that failed fatally", stats.UnitDimensionless)
	RetryAttempt       = stats.Int64("retry_attempt", "Number of store operations retried after a failure", stats.UnitDimensionless)
	RetryExhausted     = stats.Int64("retry_exhausted", "Number of store operations that failed on every attempt", stats.UnitDimensionless)
	ProcessingDuration = stats.Float64("processing_duration_ms", "Time taken to convert and persist one block", stats.UnitMilliseconds)
	IndexedHeight      = stats.Int64("indexed_height", "Height of the last block committed to the store", stats.UnitDimensionless)
	InFlightMessages   = stats.Int64("in_flight_messages", "Number of blocks being persisted concurrently", stats.UnitDimensionless)
	FetchDuration      = stats.Float64("fetch_duration_ms", "Duration of fetching one block from the stream source", stats.UnitMilliseconds)
	FetchFailure       = stats.Int64("fetch_failure", "Number of failed requests to the stream source", stats.UnitDimensionless)
	RecoveredTables    = stats.Int64("recovered_tables", "Number of tables cleaned during recovery", stats.UnitDimensionless)
)

var DefaultViews = []*view.View{
	{
		Measure:     PersistDuration,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{Table},
	},
	{
		Name:        PersistRows.Name() + "_total",
		Measure:     PersistRows,
		Aggregation: view.Sum(),
		TagKeys:     []tag.Key{Table},
	},
	{
		Name:        PersistStatements.Name() + "_total",
		Measure:     PersistStatements,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Table},
	},
	{
		Name:        PersistFailure.Name() + "_total",
		Measure:     PersistFailure,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Table},
	},
	{
		Name:        RetryAttempt.Name() + "_total",
		Measure:     RetryAttempt,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Table},
	},
	{
		Name:        RetryExhausted.Name() + "_total",
		Measure:     RetryExhausted,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Table},
	},
	{
		Measure:     ProcessingDuration,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{Name},
	},
	{
		Measure:     IndexedHeight,
		Aggregation: view.LastValue(),
		TagKeys:     []tag.Key{Name},
	},
	{
		Measure:     InFlightMessages,
		Aggregation: view.LastValue(),
		TagKeys:     []tag.Key{Name},
	},
	{
		Measure:     FetchDuration,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{Source},
	},
	{
		Name:        FetchFailure.Name() + "_total",
		Measure:     FetchFailure,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Source},
	},
	{
		Name:        RecoveredTables.Name() + "_total",
		Measure:     RecoveredTables,
		Aggregation: view.Sum(),
	},
}

// SinceInMilliseconds returns the duration of time since the provide time as a float64.
func SinceInMilliseconds(startTime time.Time) float64 {
	return float64(time.Since(startTime).Nanoseconds()) / 1e6
}

// Timer is a function stopwatch, calling it starts the timer,
// calling the returned function will record the duration.
func Timer(ctx context.Context, m *stats.Float64Measure) func() {
	start := time.Now()
	return func() {
		stats.Record(ctx, m.M(SinceInMilliseconds(start)))
	}
}

// RecordInc is a convenience function that increments a counter.
func RecordInc(ctx context.Context, m *stats.Int64Measure) {
	stats.Record(ctx, m.M(1))
}

// RecordCount is a convenience function that increments a counter by a count.
func RecordCount(ctx context.Context, m *stats.Int64Measure, count int) {
	stats.Record(ctx, m.M(int64(count)))
}

// WithTagValue is a convenience function that upserts the tag value in the given context.
func WithTagValue(ctx context.Context, k tag.Key, v string) context.Context {
	ctx, _ = tag.New(ctx, tag.Upsert(k, v))
	return ctx
}
