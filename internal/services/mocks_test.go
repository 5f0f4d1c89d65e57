package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/tripload/pkg/tripload"
)

type mockConnector struct {
	conn *pgx.Conn
	err  error
}

func (m *mockConnector) Connect(_ context.Context) (*pgx.Conn, error) {
	return m.conn, m.err
}

// sliceSource serves prepared batches, failing with err when index failAt is reached.
type sliceSource struct {
	batches []*tripload.Batch
	failAt  int
	err     error
	pulls   int
}

func (s *sliceSource) Next(_ context.Context) (*tripload.Batch, error) {
	s.pulls++
	i := s.pulls - 1
	if s.err != nil && i == s.failAt {
		return nil, s.err
	}
	if i >= len(s.batches) {
		return nil, io.EOF
	}
	return s.batches[i], nil
}

// memoryWriter keeps tables in memory and records every call in order.
type memoryWriter struct {
	mu        sync.Mutex
	tables    map[string][][]any
	schemas   map[string]*tripload.Schema
	calls     []string
	failOn    int // 1-based append number that fails; 0 never
	createErr error
	appends   int
	closed    bool
}

func newMemoryWriter() *memoryWriter {
	return &memoryWriter{tables: map[string][][]any{}, schemas: map[string]*tripload.Schema{}}
}

func (w *memoryWriter) CreateTable(_ context.Context, table string, schema *tripload.Schema) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, "create "+table)
	if w.createErr != nil {
		return w.createErr
	}
	w.tables[table] = nil
	w.schemas[table] = schema
	return nil
}

func (w *memoryWriter) Append(_ context.Context, table string, batch *tripload.Batch) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.appends++
	w.calls = append(w.calls, fmt.Sprintf("append %d", batch.Len()))
	if w.failOn == w.appends {
		return 0, fmt.Errorf("%w: disk full", tripload.ErrWriteFailed)
	}
	if _, ok := w.tables[table]; !ok && w.schemas[table] == nil {
		return 0, fmt.Errorf("%w: relation %q does not exist", tripload.ErrWriteFailed, table)
	}
	w.tables[table] = append(w.tables[table], batch.Rows...)
	return int64(batch.Len()), nil
}

func (w *memoryWriter) Close(_ context.Context) error {
	w.closed = true
	return nil
}

type recordingLogger struct {
	mu    sync.Mutex
	infos []string
	errs  []string
}

func (l *recordingLogger) Verbose(string, ...interface{}) {}

func (l *recordingLogger) Info(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, fmt.Sprintf(format, args...))
}

type recordingProgress struct {
	written []int64
	done    *tripload.LoadResult
	tracked tripload.ByteCounter
}

func (p *recordingProgress) BatchWritten(_ int, rows, _ int64) { p.written = append(p.written, rows) }
func (p *recordingProgress) Done(r *tripload.LoadResult)       { p.done = r }
func (p *recordingProgress) Track(c tripload.ByteCounter)      { p.tracked = c }

// stringStream adapts a string to SourceStream.
type stringStream struct {
	*strings.Reader
	size   int64
	closed bool
}

func newStringStream(s string) *stringStream {
	return &stringStream{Reader: strings.NewReader(s), size: int64(len(s))}
}

func (s *stringStream) Close() error      { s.closed = true; return nil }
func (s *stringStream) BytesRead() int64  { return s.size - int64(s.Len()) }
func (s *stringStream) TotalBytes() int64 { return s.size }

func intSchema(names ...string) *tripload.Schema {
	cols := make([]tripload.Column, len(names))
	for i, n := range names {
		cols[i] = tripload.Column{Name: n, Type: tripload.ColumnInt64, Declared: true}
	}
	return &tripload.Schema{Columns: cols}
}

// makeBatches splits total single-column rows numbered from 1 into batches of size.
func makeBatches(total, size int) []*tripload.Batch {
	schema := intSchema("id")
	var out []*tripload.Batch
	for start := 1; start <= total; start += size {
		end := min(start+size-1, total)
		rows := make([][]any, 0, end-start+1)
		for i := start; i <= end; i++ {
			rows = append(rows, []any{int64(i)})
		}
		out = append(out, &tripload.Batch{Schema: schema, Rows: rows, Index: len(out) + 1, FirstRow: int64(start)})
	}
	return out
}
