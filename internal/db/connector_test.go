package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/tripload/pkg/tripload"
)

type mockTokenProvider struct {
	token     string
	expiresOn time.Time
	err       error
}

func (m *mockTokenProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	if m.err != nil {
		return "", time.Time{}, m.err
	}
	return m.token, m.expiresOn, nil
}

func (m *mockTokenProvider) String() string { return "mockTokenProvider" }

func TestNewConnector(t *testing.T) {
	tests := []struct {
		name    string
		config  *tripload.ConnectionConfig
		wantErr error
		wantMsg string
		check   func(t *testing.T, c tripload.Connector)
	}{
		{
			name:   "standard",
			config: &tripload.ConnectionConfig{Host: "localhost", Port: 5432, AuthMethod: tripload.AuthMethodStandard},
			check: func(t *testing.T, c tripload.Connector) {
				assert.IsType(t, &StandardConnector{}, c)
			},
		},
		{
			name:    "aws without region",
			config:  &tripload.ConnectionConfig{Host: "rds", Port: 5432, Username: "u", AuthMethod: tripload.AuthMethodAWSIAM},
			wantMsg: "region",
		},
		{
			name: "aws",
			config: &tripload.ConnectionConfig{
				Host: "rds", Port: 5432, Username: "u", AWSRegion: "us-east-1", AuthMethod: tripload.AuthMethodAWSIAM,
			},
			check: func(t *testing.T, c tripload.Connector) {
				assert.IsType(t, &TokenBasedConnector{}, c)
			},
		},
		{
			name:    "google without instance",
			config:  &tripload.ConnectionConfig{Username: "u", AuthMethod: tripload.AuthMethodGoogleIAM},
			wantErr: tripload.ErrInvalidConfig,
		},
		{
			name:   "google",
			config: &tripload.ConnectionConfig{Username: "u", GoogleInstance: "p:r:i", AuthMethod: tripload.AuthMethodGoogleIAM},
			check: func(t *testing.T, c tripload.Connector) {
				assert.IsType(t, &GoogleCloudSQLConnector{}, c)
			},
		},
		{
			name:    "unknown",
			config:  &tripload.ConnectionConfig{AuthMethod: tripload.AuthMethod(99)},
			wantErr: tripload.ErrUnsupportedAuthMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewConnector(tt.config)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			if tt.wantMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantMsg)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestTokenBasedConnector_UsesTokenAsPassword(t *testing.T) {
	cfg := &tripload.ConnectionConfig{
		Host: "server.postgres.database.azure.com", Port: 5432, Database: "ny_taxi", Username: "loader",
	}
	provider := &mockTokenProvider{token: "tok3n", expiresOn: time.Now().Add(time.Hour)}

	var gotConnStr string
	c := NewTokenBasedConnector(cfg, provider, "Azure")
	c.connectFunc = func(ctx context.Context, _ *tripload.ConnectionConfig, connStr string) (*pgx.Conn, error) {
		gotConnStr = connStr
		return nil, errors.New("stop")
	}

	_, err := c.Connect(context.Background())
	require.Error(t, err)

	parsed, perr := ParseConnectionString(gotConnStr)
	require.NoError(t, perr)
	assert.Equal(t, "tok3n", parsed.Password)
	assert.Empty(t, cfg.Password, "original config must not be mutated")
}

func TestTokenBasedConnector_TokenError(t *testing.T) {
	cfg := &tripload.ConnectionConfig{Host: "h", Port: 5432}
	tokenErr := errors.New("credential unavailable")
	c := NewTokenBasedConnector(cfg, &mockTokenProvider{err: tokenErr}, "AWS IAM")

	_, err := c.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, tokenErr)
	assert.Contains(t, err.Error(), "AWS IAM")
}

func TestStandardConnector_UnreachableServer(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a closed port")
	}
	cfg := &tripload.ConnectionConfig{
		Host: "127.0.0.1", Port: 1, Database: "ny_taxi", Username: "root", Password: "root",
		SSLMode: "disable", ConnectTimeout: 2 * time.Second,
	}

	_, err := NewStandardConnector(cfg).Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, tripload.ErrConnectionFailed)
}

func TestNewRDSTokenProvider(t *testing.T) {
	tests := []struct {
		name    string
		config  tripload.ConnectionConfig
		wantErr bool
		want    string
	}{
		{name: "missing host", config: tripload.ConnectionConfig{Username: "u", AWSRegion: "us-east-1"}, wantErr: true},
		{name: "missing user", config: tripload.ConnectionConfig{Host: "h", AWSRegion: "us-east-1"}, wantErr: true},
		{name: "missing region", config: tripload.ConnectionConfig{Host: "h", Username: "u"}, wantErr: true},
		{
			name:   "explicit region",
			config: tripload.ConnectionConfig{Host: "h", Port: 5433, Username: "u", AWSRegion: "us-east-1"},
			want:   "rds-iam(u@h:5433, us-east-1)",
		},
		{
			name:   "region from RDS host",
			config: tripload.ConnectionConfig{Host: "taxi.abc123.eu-west-1.rds.amazonaws.com", Username: "u"},
			want:   "rds-iam(u@taxi.abc123.eu-west-1.rds.amazonaws.com:5432, eu-west-1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewRDSTokenProvider(&tt.config)
			if tt.wantErr {
				assert.ErrorIs(t, err, tripload.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.String())
		})
	}
}

func TestRegionFromRDSHost(t *testing.T) {
	assert.Equal(t, "us-west-2", regionFromRDSHost("db.cluster-xyz.us-west-2.rds.amazonaws.com"))
	assert.Empty(t, regionFromRDSHost("rds.amazonaws.com"))
	assert.Empty(t, regionFromRDSHost("localhost"))
	assert.Empty(t, regionFromRDSHost("server.postgres.database.azure.com"))
}

func TestNewEntraTokenProvider(t *testing.T) {
	p, err := NewEntraTokenProvider(&tripload.ConnectionConfig{
		AzureTenantID: "00000000-0000-0000-0000-000000000001", AzureClientID: "client", AzureClientSecret: "secret",
	})
	require.NoError(t, err)
	assert.Contains(t, p.String(), "service-principal")
	assert.NotContains(t, p.String(), "secret")

	_, err = NewEntraTokenProvider(&tripload.ConnectionConfig{AzureClientSecret: "secret"})
	assert.ErrorIs(t, err, tripload.ErrInvalidConfig)
}
