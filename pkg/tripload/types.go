package tripload

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LoadConfig contains all parameters needed for a load operation.
type LoadConfig struct {
	// Source is a local file path or an http(s) URL of the CSV file.
	Source string

	// TableName is the destination table, optionally schema-qualified ("staging.trips").
	TableName string

	// ChunkSize is the maximum number of rows per batch.
	ChunkSize int

	// ConnectionString is the PostgreSQL connection string (URI or ADO.NET format).
	// Ignored when SQLitePath is set.
	ConnectionString string

	// SQLitePath writes to a local SQLite database file instead of PostgreSQL.
	SQLitePath string

	// TypeMap declares column types; unmapped columns are inferred from the first batch.
	TypeMap TypeMap

	// DateColumns are parsed as timestamps.
	DateColumns []string

	// DryRun reads the first batch and renders the table DDL without touching the database.
	DryRun bool

	// Timeout bounds the whole run. Zero disables it.
	Timeout time.Duration

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Cloud authentication parameters, used according to AuthMethod
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
	AWSRegion         string
	GoogleInstance    string
}

// Validate checks if the LoadConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *LoadConfig) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Source) == "" {
		errs = append(errs, fmt.Errorf("Source is required: %w", ErrInvalidConfig))
	}

	if err := ValidateTableName(c.TableName); err != nil {
		errs = append(errs, err)
	}

	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("ChunkSize must be positive, got %d: %w", c.ChunkSize, ErrInvalidConfig))
	}

	if c.ConnectionString == "" && c.SQLitePath == "" && !c.DryRun {
		errs = append(errs, fmt.Errorf("ConnectionString is required: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	if !c.AuthMethod.IsValid() {
		errs = append(errs, fmt.Errorf("auth method %v: %w", c.AuthMethod, ErrUnsupportedAuthMethod))
	}

	for name, t := range c.TypeMap {
		if name == "" {
			errs = append(errs, fmt.Errorf("type map contains an empty column name: %w", ErrInvalidConfig))
		}
		if !t.IsValid() {
			errs = append(errs, fmt.Errorf("column %q has invalid type %v: %w", name, t, ErrInvalidConfig))
		}
	}

	for _, name := range c.DateColumns {
		if name == "" {
			errs = append(errs, fmt.Errorf("date columns contain an empty name: %w", ErrInvalidConfig))
		}
	}

	return errors.Join(errs...)
}

// ValidateTableName accepts "table" or "schema.table" with non-empty parts.
func ValidateTableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("TableName is required: %w", ErrInvalidConfig)
	}
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return fmt.Errorf("table name %q has more than one qualifier: %w", name, ErrInvalidConfig)
	}
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("table name %q has an empty part: %w", name, ErrInvalidConfig)
		}
	}
	return nil
}

// SplitTableName returns the schema (possibly empty) and the bare table name.
func SplitTableName(name string) (schema, table string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// LoadResult summarizes a completed load.
type LoadResult struct {
	RunID     string
	Table     string
	Batches   int
	Rows      int64
	Columns   []Column
	StartedAt time.Time
	Duration  time.Duration

	// DDL is the CREATE TABLE statement; set only on dry runs.
	DDL string
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// If none are provided, DefaultAzureCredential chain is used (env vars, managed identity, CLI, etc.)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is required for AuthMethodAWSIAM.
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name (project:region:instance).
	GoogleInstance string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}
