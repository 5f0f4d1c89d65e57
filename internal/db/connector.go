package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/tripload/pkg/tripload"
)

// DefaultConnectTimeout bounds the TCP/TLS handshake when the connection
// string does not specify connect_timeout.
const DefaultConnectTimeout = 30 * time.Second

func configureConn(connConfig *pgx.ConnConfig) {
	if connConfig.ConnectTimeout == 0 {
		connConfig.ConnectTimeout = DefaultConnectTimeout
	}
	if _, ok := connConfig.RuntimeParams["application_name"]; !ok {
		connConfig.RuntimeParams["application_name"] = tripload.DefaultAppName
	}
}

// StandardConnector implements the Connector interface for standard
// username/password authentication. A failed attempt is reported as-is;
// the loader does not retry.
type StandardConnector struct {
	config *tripload.ConnectionConfig
}

// NewStandardConnector creates a new StandardConnector with the given configuration.
func NewStandardConnector(config *tripload.ConnectionConfig) *StandardConnector {
	return &StandardConnector{config: config}
}

// Connect opens a single connection using standard authentication.
func (c *StandardConnector) Connect(ctx context.Context) (*pgx.Conn, error) {
	return connect(ctx, c.config, BuildConnectionString(c.config))
}

func connect(ctx context.Context, cfg *tripload.ConnectionConfig, connStr string) (*pgx.Conn, error) {
	connConfig, err := pgx.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	configureConn(connConfig)

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close(context.Background()) //nolint:errcheck
		return nil, wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
	}

	return conn, nil
}

// NewConnector is a factory function that creates the appropriate Connector
// based on the ConnectionConfig's AuthMethod.
func NewConnector(config *tripload.ConnectionConfig) (tripload.Connector, error) {
	switch config.AuthMethod {
	case tripload.AuthMethodStandard:
		return NewStandardConnector(config), nil
	case tripload.AuthMethodAWSIAM:
		return newAWSConnector(config)
	case tripload.AuthMethodGoogleIAM:
		return newGoogleConnector(config)
	case tripload.AuthMethodAzureEntraID:
		return newAzureConnector(config)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, tripload.ErrUnsupportedAuthMethod)
	}
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
// The result always matches tripload.ErrConnectionFailed.
func wrapConnectionError(err error, host string, port int, database string) error {
	return fmt.Errorf("%w: %w", tripload.ErrConnectionFailed, describeConnectionError(err, host, port, database))
}

// connectionHint maps an error substring to a headline and remedies.
// Entries are checked in order; the first match wins.
type connectionHint struct {
	matches  []string
	headline func(addr, host, database string) string
	hints    []string
}

var connectionHints = []connectionHint{
	{
		matches:  []string{"connection refused", "actively refused"},
		headline: func(addr, _, _ string) string { return "connection refused to " + addr },
		hints: []string{
			"PostgreSQL is not running (docker compose up, or pg_isready -h <host> -p <port>)",
			"wrong host or port (-h, -p, $PGHOST, $PGPORT)",
		},
	},
	{
		matches:  []string{"no such host", "no host"},
		headline: func(_, host, _ string) string { return fmt.Sprintf("cannot resolve host %q", host) },
		hints: []string{
			"host name is misspelled",
			"inside docker compose, use the service name instead of localhost",
		},
	},
	{
		matches: []string{"password authentication failed"},
		headline: func(_, _, database string) string {
			return fmt.Sprintf("password authentication failed for database %q", database)
		},
		hints: []string{
			"check $PGPASSWORD or the password in the connection string",
			"the local default is root/root",
		},
	},
	{
		matches: []string{"does not exist"},
		headline: func(_, _, database string) string {
			return fmt.Sprintf("database %q does not exist", database)
		},
		hints: []string{
			"create it first: createdb <name>, or set POSTGRES_DB for the container",
			"choose another database with -d",
		},
	},
	{
		matches:  []string{"too many connections"},
		headline: func(_, _, database string) string { return fmt.Sprintf("too many connections to database %q", database) },
		hints:    []string{"max_connections is exhausted on the server"},
	},
	{
		matches:  []string{"timeout", "timed out"},
		headline: func(addr, _, _ string) string { return "connection timed out to " + addr },
		hints: []string{
			"server is unreachable or a firewall drops packets",
			"raise connect_timeout in the connection string",
		},
	},
	{
		matches:  []string{"ssl", "tls"},
		headline: func(string, string, string) string { return "SSL/TLS connection error" },
		hints:    []string{"the server and --sslmode disagree (local containers usually need --sslmode disable)"},
	},
}

func describeConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	for _, h := range connectionHints {
		for _, m := range h.matches {
			if !strings.Contains(errStr, m) {
				continue
			}
			var b strings.Builder
			b.WriteString(h.headline(addr, host, database))
			b.WriteString("\n\nPossible causes:\n")
			for _, hint := range h.hints {
				b.WriteString("  - " + hint + "\n")
			}
			return fmt.Errorf("%s\nOriginal error: %w", b.String(), err)
		}
	}
	return fmt.Errorf("failed to connect to %s/%s: %w", addr, database, err)
}
