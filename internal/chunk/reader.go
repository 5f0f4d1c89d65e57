// Package chunk reads a CSV stream as a lazy sequence of typed row batches.
//
// The header is read on the first call to Next. Declared columns use the
// configured type map; other columns get a type inferred once from the
// first batch and keep it for the rest of the stream.
package chunk

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// Options configures a Reader.
type Options struct {
	ChunkSize   int
	Types       tripload.TypeMap
	DateColumns []string
	Logger      tripload.Logger
}

// Reader implements tripload.BatchSource over CSV input.
type Reader struct {
	csv    *csv.Reader
	opts   Options
	header []string
	schema *tripload.Schema
	conv   []converter

	rows    int64
	batches int
	done    bool
}

// NewReader creates a Reader. The input is not touched until the first Next.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	if opts.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d: %w", opts.ChunkSize, tripload.ErrInvalidConfig)
	}
	cr := csv.NewReader(r)
	cr.ReuseRecord = false
	return &Reader{csv: cr, opts: opts}, nil
}

// Next returns the next batch of at most ChunkSize rows, or io.EOF.
// A header without data rows yields io.EOF on the first call.
func (r *Reader) Next(ctx context.Context) (*tripload.Batch, error) {
	if r.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.header == nil {
		header, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			r.done = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read header: %w", tripload.ErrSourceUnavailable, err)
		}
		r.header = normalizeHeader(header)
		r.verbose("header: %d columns", len(r.header))
	}

	records := make([][]string, 0, min(r.opts.ChunkSize, 1<<16))
	for len(records) < r.opts.ChunkSize {
		rec, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			r.done = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", tripload.ErrSourceUnavailable, r.rows+int64(len(records))+1, err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, io.EOF
	}

	if r.schema == nil {
		if err := r.resolveSchema(records); err != nil {
			return nil, err
		}
	}

	firstRow := r.rows + 1
	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, raw := range rec {
			if IsNull(raw) {
				continue
			}
			v, err := r.conv[j](raw)
			if err != nil {
				col := r.schema.Columns[j]
				return nil, &tripload.CoercionError{
					Row:    firstRow + int64(i),
					Column: col.Name,
					Value:  raw,
					Type:   col.Type,
					Err:    err,
				}
			}
			row[j] = v
		}
		rows[i] = row
	}

	r.rows += int64(len(rows))
	r.batches++
	r.verbose("chunk %d: %d rows parsed", r.batches, len(rows))

	return &tripload.Batch{
		Schema:   r.schema,
		Rows:     rows,
		Index:    r.batches,
		FirstRow: firstRow,
	}, nil
}

func (r *Reader) resolveSchema(records [][]string) error {
	dates := make(map[string]bool, len(r.opts.DateColumns))
	for _, name := range r.opts.DateColumns {
		dates[name] = true
	}

	schema := &tripload.Schema{Columns: make([]tripload.Column, len(r.header))}
	conv := make([]converter, len(r.header))

	for j, name := range r.header {
		col := tripload.Column{Name: name}
		switch {
		case dates[name]:
			col.Type, col.Declared = tripload.ColumnTimestamp, true
		case r.opts.Types[name].IsValid():
			col.Type, col.Declared = r.opts.Types[name], true
		default:
			values := make([]string, len(records))
			for i, rec := range records {
				values[i] = rec[j]
			}
			col.Type = inferType(values)
			r.verbose("column %q not in type map, inferred %s", name, col.Type)
		}

		c, err := converterFor(col.Type)
		if err != nil {
			return err
		}
		schema.Columns[j] = col
		conv[j] = c
	}

	r.schema = schema
	r.conv = conv
	return nil
}

func (r *Reader) verbose(format string, args ...interface{}) {
	if r.opts.Logger != nil {
		r.opts.Logger.Verbose(format, args...)
	}
}

// normalizeHeader strips a UTF-8 byte order mark and renames duplicate
// columns to name.1, name.2 and so on.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if n, ok := seen[name]; ok {
			var candidate string
			for {
				candidate = name + "." + strconv.Itoa(n)
				n++
				if _, taken := seen[candidate]; !taken {
					break
				}
			}
			seen[name] = n
			seen[candidate] = 1
			out[i] = candidate
			continue
		}
		seen[name] = 1
		out[i] = name
	}
	return out
}
