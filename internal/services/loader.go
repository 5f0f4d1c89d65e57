package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vvka-141/tripload/pkg/tripload"
)

type noopProgress struct{}

func (noopProgress) BatchWritten(int, int64, int64) {}
func (noopProgress) Done(*tripload.LoadResult)      {}

// LoadChunks replaces table with the structure of the first batch and then
// appends every batch in source order. It is strictly sequential: a batch is
// fully written before the next one is read.
//
// An exhausted source on the first pull returns ErrEmptySource and leaves the
// destination untouched. Any later error stops the load; batches already
// appended stay in the table.
func LoadChunks(
	ctx context.Context,
	batches tripload.BatchSource,
	writer tripload.TableWriter,
	table string,
	logger tripload.Logger,
	progress tripload.ProgressReporter,
) (*tripload.LoadResult, error) {
	if progress == nil {
		progress = noopProgress{}
	}
	start := time.Now()
	result := &tripload.LoadResult{Table: table, StartedAt: start}

	first, err := batches.Next(ctx)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: no rows to load into '%s'", tripload.ErrEmptySource, table)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read first chunk: %w", err)
	}

	if err := writer.CreateTable(ctx, table, first.Schema); err != nil {
		return nil, err
	}
	logger.Info("Table '%s' created", table)
	result.Columns = append([]tripload.Column(nil), first.Schema.Columns...)

	n, err := writer.Append(ctx, table, first)
	if err != nil {
		return nil, err
	}
	result.Batches, result.Rows = 1, n
	logger.Info("Inserted first chunk: %d rows", n)
	progress.BatchWritten(first.Index, n, result.Rows)

	for {
		batch, err := batches.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("failed to read chunk %d: %w", result.Batches+1, err)
		}

		n, err := writer.Append(ctx, table, batch)
		if err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		result.Batches++
		result.Rows += n
		logger.Info("Inserted chunk: %d rows", n)
		progress.BatchWritten(batch.Index, n, result.Rows)
	}

	result.Duration = time.Since(start)
	logger.Info("Done ingesting data into '%s'", table)
	return result, nil
}
