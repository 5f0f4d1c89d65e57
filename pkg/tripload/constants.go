package tripload

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess           = 0  // Load completed successfully
	ExitGeneralError      = 1  // Unknown or unclassified error
	ExitUsageError        = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic             = 3  // Internal panic (unexpected crash)
	ExitConfigError       = 10 // Invalid configuration or parameters
	ExitConnectionError   = 11 // Failed to connect to database
	ExitSourceUnavailable = 12 // Source could not be opened, downloaded or decompressed
	ExitCoercionError     = 13 // A value could not be converted to its column type
	ExitWriteFailed       = 14 // Table creation or row insertion failed
	ExitEmptySource       = 15 // Source contains no data rows
)

const (
	// DefaultChunkSize is the number of source rows read and appended per batch.
	DefaultChunkSize = 100_000

	// DefaultTableName is the destination table used when none is configured.
	DefaultTableName = "yellow_taxi_data"

	// DefaultURLPrefix is the release location of the NYC TLC yellow trip CSV files.
	DefaultURLPrefix = "https://github.com/DataTalksClub/nyc-tlc-data/releases/download/yellow"

	// DefaultYear and DefaultMonth select the monthly file loaded by default.
	DefaultYear  = 2021
	DefaultMonth = 1

	// Connection defaults for the local ny_taxi development database.
	DefaultHost     = "localhost"
	DefaultPort     = 5432
	DefaultUser     = "root"
	DefaultPassword = "root"
	DefaultDatabase = "ny_taxi"
	DefaultSSLMode  = "disable"

	// DefaultAppName is reported to PostgreSQL as application_name.
	DefaultAppName = "tripload"

	// DefaultHTTPTimeout bounds the wait for response headers when downloading a source.
	DefaultHTTPTimeout = 60 * time.Second

	// DefaultManagementDB is the database used when a connection string names none.
	DefaultManagementDB = "postgres"

	// MaxErrorPreviewLength caps the source value quoted in coercion errors.
	MaxErrorPreviewLength = 64
)
