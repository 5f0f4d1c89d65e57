package tripload

import "context"

// BatchSource is a lazy, forward-only sequence of row batches.
type BatchSource interface {
	// Next returns the next batch, or io.EOF once the source is exhausted.
	Next(ctx context.Context) (*Batch, error)
}

// TableWriter creates the destination table and appends batches to it.
type TableWriter interface {
	// CreateTable drops any table with the same name and creates it empty.
	CreateTable(ctx context.Context, table string, schema *Schema) error

	// Append inserts all rows of the batch as one unit and returns the row count.
	Append(ctx context.Context, table string, batch *Batch) (int64, error)

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

// ProgressReporter receives per-batch progress. Implementations may render
// to a terminal or do nothing.
type ProgressReporter interface {
	// BatchWritten is called after each successful append.
	BatchWritten(batch int, rows, totalRows int64)

	// Done is called once after the last batch.
	Done(result *LoadResult)
}

// ByteCounter reports how much of the compressed source has been consumed.
// TotalBytes returns a value <= 0 when the size is unknown.
type ByteCounter interface {
	BytesRead() int64
	TotalBytes() int64
}

// Loader runs a complete load described by a LoadConfig.
type Loader interface {
	Ingest(ctx context.Context, config LoadConfig) (*LoadResult, error)
}
