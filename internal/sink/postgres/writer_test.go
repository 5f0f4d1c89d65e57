package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/tripload/internal/logging"
	"github.com/vvka-141/tripload/pkg/tripload"
)

func sampleSchema() *tripload.Schema {
	return &tripload.Schema{Columns: []tripload.Column{
		{Name: "VendorID", Type: tripload.ColumnInt64, Declared: true},
		{Name: "tpep_pickup_datetime", Type: tripload.ColumnTimestamp, Declared: true},
		{Name: "trip_distance", Type: tripload.ColumnFloat64, Declared: true},
		{Name: "store_and_fwd_flag", Type: tripload.ColumnString, Declared: true},
		{Name: "flagged", Type: tripload.ColumnBool},
	}}
}

func TestCreateTableSQL(t *testing.T) {
	got, err := CreateTableSQL("yellow_taxi_data", sampleSchema())
	require.NoError(t, err)

	want := `CREATE TABLE "yellow_taxi_data" (
    "VendorID" BIGINT,
    "tpep_pickup_datetime" TIMESTAMP WITHOUT TIME ZONE,
    "trip_distance" DOUBLE PRECISION,
    "store_and_fwd_flag" TEXT,
    "flagged" BOOLEAN
)`
	assert.Equal(t, want, got)
}

func TestCreateTableSQL_SchemaQualified(t *testing.T) {
	got, err := CreateTableSQL("staging.trips", sampleSchema())
	require.NoError(t, err)
	assert.Contains(t, got, `CREATE TABLE "staging"."trips" (`)
}

func TestCreateTableSQL_Errors(t *testing.T) {
	_, err := CreateTableSQL("", sampleSchema())
	assert.ErrorIs(t, err, tripload.ErrInvalidConfig)

	_, err = CreateTableSQL("t", &tripload.Schema{})
	assert.ErrorIs(t, err, tripload.ErrInvalidConfig)

	_, err = CreateTableSQL("t", &tripload.Schema{Columns: []tripload.Column{{Name: "x"}}})
	assert.ErrorIs(t, err, tripload.ErrInvalidConfig)
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, pgx.Identifier{"trips"}, Identifier("trips"))
	assert.Equal(t, pgx.Identifier{"raw", "trips"}, Identifier("raw.trips"))
}

type fakeConn struct {
	copied  [][]any
	columns []string
	table   pgx.Identifier
	err     error
	closed  bool
}

func (f *fakeConn) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("not supported")
}

func (f *fakeConn) CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.table = table
	f.columns = columns
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		f.copied = append(f.copied, vals)
	}
	return int64(len(f.copied)), nil
}

func (f *fakeConn) Close(ctx context.Context) error {
	f.closed = true
	return nil
}

func TestWriter_Append(t *testing.T) {
	conn := &fakeConn{}
	w := NewWriter(conn, logging.NewNullLogger())

	batch := &tripload.Batch{
		Schema: sampleSchema(),
		Rows: [][]any{
			{int64(1), nil, 2.5, "N", nil},
			{int64(2), nil, 0.8, nil, true},
		},
		Index:    1,
		FirstRow: 1,
	}

	n, err := w.Append(context.Background(), "yellow_taxi_data", batch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, pgx.Identifier{"yellow_taxi_data"}, conn.table)
	assert.Equal(t, sampleSchema().Names(), conn.columns)
	assert.Equal(t, batch.Rows, conn.copied)

	require.NoError(t, w.Close(context.Background()))
	assert.True(t, conn.closed)
}

func TestWriter_AppendFailure(t *testing.T) {
	copyErr := errors.New("invalid input syntax for type bigint")
	w := NewWriter(&fakeConn{err: copyErr}, logging.NewNullLogger())

	batch := &tripload.Batch{Schema: sampleSchema(), Rows: make([][]any, 10), Index: 3, FirstRow: 21}
	_, err := w.Append(context.Background(), "t", batch)
	require.Error(t, err)
	assert.ErrorIs(t, err, tripload.ErrWriteFailed)
	assert.ErrorIs(t, err, copyErr)
	assert.Contains(t, err.Error(), "chunk 3 (rows 21-30)")
}

func TestWriter_CreateTableBeginFailure(t *testing.T) {
	w := NewWriter(&fakeConn{}, logging.NewNullLogger())
	err := w.CreateTable(context.Background(), "t", sampleSchema())
	assert.ErrorIs(t, err, tripload.ErrWriteFailed)
}
