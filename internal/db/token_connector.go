package db

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/tripload/pkg/tripload"
)

// TokenBasedConnector implements the Connector interface for cloud providers
// that authenticate via short-lived tokens (AWS IAM, Azure Entra ID).
// The token is acquired from a TokenProvider and used as the PostgreSQL password.
type TokenBasedConnector struct {
	config        *tripload.ConnectionConfig
	tokenProvider TokenProvider
	providerName  string
	connectFunc   func(ctx context.Context, cfg *tripload.ConnectionConfig, connStr string) (*pgx.Conn, error)
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName is used in error/warning messages (e.g., "AWS IAM", "Azure").
func NewTokenBasedConnector(config *tripload.ConnectionConfig, tokenProvider TokenProvider, providerName string) *TokenBasedConnector {
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		providerName:  providerName,
		connectFunc:   connect,
	}
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgx.Conn, error) {
	token, expiresOn, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s token: %w", c.providerName, err)
	}

	if remaining := time.Until(expiresOn); remaining < 5*time.Minute {
		fmt.Fprintf(os.Stderr, "Warning: %s token expires in %v\n", c.providerName, remaining.Round(time.Second))
	}

	configWithToken := *c.config
	configWithToken.Password = token

	return c.connectFunc(ctx, c.config, BuildConnectionString(&configWithToken))
}
