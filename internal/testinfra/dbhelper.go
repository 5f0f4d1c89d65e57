package testinfra

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
)

var (
	testContainerOnce sync.Once
	testContainerConn string
	testContainerErr  error
)

func getOrStartTestContainer() (string, error) {
	testContainerOnce.Do(func() {
		container, err := StartSimplePostgres(context.Background())
		if err != nil {
			testContainerErr = err
			return
		}
		testContainerConn = container.ConnString
	})
	return testContainerConn, testContainerErr
}

// GetTestConnectionString returns the test database connection string.
// Priority: TRIPLOAD_TEST_CONN env var > auto-started testcontainer > skip test.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv("TRIPLOAD_TEST_CONN"); connString != "" {
		return connString
	}

	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("TRIPLOAD_TEST_CONN not set and Docker unavailable: %v", err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString for convenience.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// Connect opens a connection for assertions. It is closed when the test completes.
func Connect(t *testing.T, connString string) *pgx.Conn {
	t.Helper()

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() {
		conn.Close(context.Background()) //nolint:errcheck
	})
	return conn
}

// DropTable removes table after the test completes.
func DropTable(t *testing.T, connString, table string) {
	t.Helper()

	t.Cleanup(func() {
		ctx := context.Background()
		conn, err := pgx.Connect(ctx, connString)
		if err != nil {
			t.Logf("Warning: Failed to connect for cleanup: %v", err)
			return
		}
		defer conn.Close(ctx) //nolint:errcheck

		if _, err := conn.Exec(ctx, "DROP TABLE IF EXISTS "+pgx.Identifier{table}.Sanitize()); err != nil {
			t.Logf("Warning: Failed to drop table %s: %v", table, err)
		}
	})
}

// CountRows returns the number of rows in table.
func CountRows(t *testing.T, conn *pgx.Conn, table string) int64 {
	t.Helper()

	var n int64
	q := "SELECT count(*) FROM " + pgx.Identifier{table}.Sanitize()
	if err := conn.QueryRow(context.Background(), q).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}
	return n
}
