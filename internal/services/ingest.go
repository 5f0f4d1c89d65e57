package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/tripload/internal/chunk"
	"github.com/vvka-141/tripload/internal/db"
	"github.com/vvka-141/tripload/internal/logging"
	"github.com/vvka-141/tripload/internal/sink/postgres"
	"github.com/vvka-141/tripload/internal/sink/sqlite"
	"github.com/vvka-141/tripload/internal/source"
	"github.com/vvka-141/tripload/pkg/tripload"
)

// SourceStream is an opened, decompressed source.
type SourceStream interface {
	io.ReadCloser
	tripload.ByteCounter
}

// SourceOpener opens a path or URL for reading.
type SourceOpener func(ctx context.Context, location string) (SourceStream, error)

// WriterOpener opens the destination for a load.
type WriterOpener func(ctx context.Context, config tripload.LoadConfig, runID string) (tripload.TableWriter, error)

type sourceTracker interface {
	Track(counter tripload.ByteCounter)
}

// IngestService implements tripload.Loader.
// Thread-Safety: NOT safe for concurrent Ingest() calls on the same instance.
type IngestService struct {
	connectorFactory func(*tripload.ConnectionConfig) (tripload.Connector, error)
	logger           tripload.Logger
	progress         tripload.ProgressReporter
	openSource       SourceOpener
	openWriter       WriterOpener
	newRunID         func() string
}

// NewIngestService creates an IngestService. progress may be nil.
// Panics on nil connectorFactory or logger: those are wiring mistakes.
func NewIngestService(
	connectorFactory func(*tripload.ConnectionConfig) (tripload.Connector, error),
	logger tripload.Logger,
	progress tripload.ProgressReporter,
) *IngestService {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if progress == nil {
		progress = noopProgress{}
	}

	s := &IngestService{
		connectorFactory: connectorFactory,
		logger:           logger,
		progress:         progress,
		newRunID:         uuid.NewString,
	}
	opener := &source.Opener{Client: newHTTPClient()}
	s.openSource = func(ctx context.Context, location string) (SourceStream, error) {
		stream, err := opener.Open(ctx, location)
		if err != nil {
			return nil, err
		}
		return stream, nil
	}
	s.openWriter = s.defaultWriterOpener
	return s
}

// Ingest streams config.Source into config.TableName.
func (s *IngestService) Ingest(ctx context.Context, config tripload.LoadConfig) (*tripload.LoadResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	runID := s.newRunID()
	log := s.runLogger(runID)
	started := time.Now()
	log.Verbose("run %s: loading %s into %s (chunk size %d)", runID, config.Source, config.TableName, config.ChunkSize)

	stream, err := s.openSource(ctx, config.Source)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if t, ok := s.progress.(sourceTracker); ok {
		t.Track(stream)
	}

	types := config.TypeMap
	if types == nil {
		types = tripload.YellowTaxiTypes()
	}
	dates := config.DateColumns
	if dates == nil {
		dates = tripload.YellowTaxiDateColumns()
	}

	reader, err := chunk.NewReader(stream, chunk.Options{
		ChunkSize:   config.ChunkSize,
		Types:       types,
		DateColumns: dates,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	if config.DryRun {
		return s.dryRun(ctx, reader, config, runID, started)
	}

	writer, err := s.openWriter(ctx, config, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := writer.Close(context.Background()); cerr != nil {
			log.Verbose("close destination: %v", cerr)
		}
	}()

	result, err := LoadChunks(ctx, reader, writer, config.TableName, log, s.progress)
	if result != nil {
		result.RunID = runID
		result.StartedAt = started
	}
	if err != nil {
		if result != nil {
			log.Error("load stopped after %d chunks (%d rows)", result.Batches, result.Rows)
		}
		return result, err
	}

	result.Duration = time.Since(started)
	s.progress.Done(result)
	return result, nil
}

// dryRun reads the first batch and renders the DDL the load would run.
func (s *IngestService) dryRun(ctx context.Context, reader *chunk.Reader, config tripload.LoadConfig, runID string, started time.Time) (*tripload.LoadResult, error) {
	first, err := reader.Next(ctx)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: no rows to load into '%s'", tripload.ErrEmptySource, config.TableName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read first chunk: %w", err)
	}

	var ddl string
	if config.SQLitePath != "" {
		ddl, err = sqlite.CreateTableSQL(config.TableName, first.Schema)
	} else {
		ddl, err = postgres.CreateTableSQL(config.TableName, first.Schema)
	}
	if err != nil {
		return nil, err
	}

	return &tripload.LoadResult{
		RunID:     runID,
		Table:     config.TableName,
		Columns:   first.Schema.Columns,
		StartedAt: started,
		Duration:  time.Since(started),
		DDL:       ddl,
	}, nil
}

func (s *IngestService) defaultWriterOpener(ctx context.Context, config tripload.LoadConfig, runID string) (tripload.TableWriter, error) {
	log := s.runLogger(runID)
	if config.SQLitePath != "" {
		log.Verbose("writing to SQLite database %s", config.SQLitePath)
		return sqlite.Open(ctx, config.SQLitePath, log)
	}

	connConfig, err := db.ParseConnectionString(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w: %w", err, tripload.ErrInvalidConfig)
	}
	connConfig.AuthMethod = config.AuthMethod
	connConfig.AzureTenantID = config.AzureTenantID
	connConfig.AzureClientID = config.AzureClientID
	connConfig.AzureClientSecret = config.AzureClientSecret
	connConfig.AWSRegion = config.AWSRegion
	connConfig.GoogleInstance = config.GoogleInstance
	if connConfig.AppName == "" {
		connConfig.AppName = tripload.DefaultAppName + "-" + shortRunID(runID)
	}

	connector, err := s.connectorFactory(connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	log.Verbose("connecting to %s:%d/%s as %s (%s)", connConfig.Host, connConfig.Port, connConfig.Database, connConfig.Username, connConfig.AuthMethod)
	conn, err := connector.Connect(ctx)
	if err != nil {
		if closer, ok := connector.(io.Closer); ok {
			closer.Close() //nolint:errcheck
		}
		if errors.Is(err, tripload.ErrConnectionFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", tripload.ErrConnectionFailed, err)
	}

	w := postgres.NewWriter(conn, log)
	if closer, ok := connector.(io.Closer); ok {
		return &closingWriter{TableWriter: w, closer: closer}, nil
	}
	return w, nil
}

// closingWriter releases connector resources (the Cloud SQL dialer) after
// the connection itself is closed.
type closingWriter struct {
	tripload.TableWriter
	closer io.Closer
}

func (w *closingWriter) Close(ctx context.Context) error {
	return errors.Join(w.TableWriter.Close(ctx), w.closer.Close())
}

// runLogger tags structured log entries with the run id.
func (s *IngestService) runLogger(runID string) tripload.Logger {
	if z, ok := s.logger.(*logging.ZapLogger); ok {
		return z.With("run_id", runID)
	}
	return s.logger
}

func shortRunID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}
