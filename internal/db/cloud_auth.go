package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// TokenProvider issues short-lived passwords for cloud-hosted PostgreSQL.
type TokenProvider interface {
	// GetToken returns the token and the time it stops being accepted.
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String describes the credential source without secrets.
	String() string
}

// AzurePostgreSQLScope is the OAuth scope for Azure Database for PostgreSQL.
const AzurePostgreSQLScope = "https://ossrdbms-aad.database.windows.net/.default"

// rdsTokenLifetime is how long RDS accepts a generated IAM token.
const rdsTokenLifetime = 15 * time.Minute

// RDSTokenProvider signs RDS IAM tokens with the default AWS credential chain.
type RDSTokenProvider struct {
	endpoint string
	region   string
	username string
}

// NewRDSTokenProvider builds a provider for the server in cfg. When
// cfg.AWSRegion is empty the region is taken from an *.rds.amazonaws.com host.
func NewRDSTokenProvider(cfg *tripload.ConnectionConfig) (*RDSTokenProvider, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("AWS IAM auth requires a host: %w", tripload.ErrInvalidConfig)
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("AWS IAM auth requires a database user (-U): %w", tripload.ErrInvalidConfig)
	}
	region := cfg.AWSRegion
	if region == "" {
		region = regionFromRDSHost(cfg.Host)
	}
	if region == "" {
		return nil, fmt.Errorf("AWS IAM auth requires a region (--aws-region or $AWS_REGION): %w", tripload.ErrInvalidConfig)
	}
	port := cfg.Port
	if port == 0 {
		port = tripload.DefaultPort
	}

	return &RDSTokenProvider{
		endpoint: fmt.Sprintf("%s:%d", cfg.Host, port),
		region:   region,
		username: cfg.Username,
	}, nil
}

func (p *RDSTokenProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(p.region))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("load AWS credentials: %w", err)
	}

	issued := time.Now()
	token, err := auth.BuildAuthToken(ctx, p.endpoint, p.region, p.username, awsCfg.Credentials)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign RDS auth token: %w", err)
	}
	return token, issued.Add(rdsTokenLifetime), nil
}

func (p *RDSTokenProvider) String() string {
	return fmt.Sprintf("rds-iam(%s@%s, %s)", p.username, p.endpoint, p.region)
}

// regionFromRDSHost extracts the region from hosts such as
// mydb.abc123.eu-west-1.rds.amazonaws.com. It returns "" for other hosts.
func regionFromRDSHost(host string) string {
	const suffix = ".rds.amazonaws.com"
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	labels := strings.Split(strings.TrimSuffix(host, suffix), ".")
	if len(labels) < 2 {
		return ""
	}
	return labels[len(labels)-1]
}

// EntraTokenProvider requests Entra ID access tokens for Azure Database for PostgreSQL.
type EntraTokenProvider struct {
	credential  azcore.TokenCredential
	description string
}

// NewEntraTokenProvider uses a service principal when tenant, client and
// secret are all set, and the DefaultAzureCredential chain otherwise
// (environment, workload identity, managed identity, Azure CLI).
func NewEntraTokenProvider(cfg *tripload.ConnectionConfig) (*EntraTokenProvider, error) {
	if cfg.AzureTenantID != "" && cfg.AzureClientID != "" && cfg.AzureClientSecret != "" {
		cred, err := azidentity.NewClientSecretCredential(cfg.AzureTenantID, cfg.AzureClientID, cfg.AzureClientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("create Azure service principal credential: %w: %w", err, tripload.ErrInvalidConfig)
		}
		return &EntraTokenProvider{
			credential:  cred,
			description: fmt.Sprintf("entra-service-principal(tenant=%s, client=%s)", cfg.AzureTenantID, cfg.AzureClientID),
		}, nil
	}

	if cfg.AzureClientSecret != "" {
		return nil, fmt.Errorf("AZURE_CLIENT_SECRET needs both a tenant ID and a client ID: %w", tripload.ErrInvalidConfig)
	}

	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		TenantID: cfg.AzureTenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("create Azure default credential: %w", err)
	}
	return &EntraTokenProvider{credential: cred, description: "entra-default-chain"}, nil
}

func (p *EntraTokenProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	tok, err := p.credential.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{AzurePostgreSQLScope},
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("request Entra ID token: %w", err)
	}
	return tok.Token, tok.ExpiresOn, nil
}

func (p *EntraTokenProvider) String() string { return p.description }

func newAWSConnector(config *tripload.ConnectionConfig) (tripload.Connector, error) {
	provider, err := NewRDSTokenProvider(config)
	if err != nil {
		return nil, err
	}
	return NewTokenBasedConnector(config, provider, "AWS IAM"), nil
}

func newAzureConnector(config *tripload.ConnectionConfig) (tripload.Connector, error) {
	provider, err := NewEntraTokenProvider(config)
	if err != nil {
		return nil, err
	}
	return NewTokenBasedConnector(config, provider, "Azure"), nil
}

func newGoogleConnector(config *tripload.ConnectionConfig) (tripload.Connector, error) {
	if config.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", tripload.ErrInvalidConfig)
	}
	if config.Username == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires a database user (-U): %w", tripload.ErrInvalidConfig)
	}
	return NewGoogleCloudSQLConnector(config, config.GoogleInstance), nil
}
