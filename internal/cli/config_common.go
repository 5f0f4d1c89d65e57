package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/tripload/internal/config"
	"github.com/vvka-141/tripload/internal/db"
	"github.com/vvka-141/tripload/pkg/tripload"
)

// connectionFlags holds the connection-related flag values.
type connectionFlags struct {
	connection     string
	host           string
	port           int
	username       string
	database       string
	sslMode        string
	azure          bool
	azureTenantID  string
	azureClientID  string
	aws            bool
	awsRegion      string
	google         bool
	googleInstance string
}

// resolveConnectionFromFlags resolves the connection from flags, environment and tripload.yaml.
func resolveConnectionFromFlags(
	flags connectionFlags,
	projectCfg *config.ProjectConfig,
	env *db.EnvVars,
) (*tripload.ConnectionConfig, error) {
	granularFlags := &db.GranularConnFlags{
		Host:     flags.host,
		Port:     flags.port,
		Username: flags.username,
		Database: flags.database,
		SSLMode:  flags.sslMode,
	}

	cloudFlags := &db.CloudFlags{
		Azure: db.AzureFlags{
			Enabled:  flags.azure,
			TenantID: flags.azureTenantID,
			ClientID: flags.azureClientID,
		},
		AWS: db.AWSFlags{
			Enabled: flags.aws,
			Region:  flags.awsRegion,
		},
		Google: db.GoogleFlags{
			Enabled:  flags.google,
			Instance: flags.googleInstance,
		},
	}

	return db.ResolveConnectionParams(flags.connection, granularFlags, cloudFlags, env, projectCfg)
}

// resolveEffectiveTimeout returns the --timeout flag when set, else the tripload.yaml timeout.
func resolveEffectiveTimeout(
	cmd *cobra.Command,
	projectCfg *config.ProjectConfig,
	flagTimeout time.Duration,
) (time.Duration, error) {
	if cmd.Flags().Changed("timeout") {
		return flagTimeout, nil
	}
	timeout, err := projectCfg.TimeoutDuration()
	if err != nil {
		return 0, err
	}
	if timeout == 0 {
		return flagTimeout, nil
	}
	return timeout, nil
}

// loadProjectConfig loads .env and the project configuration.
// Returns nil config if tripload.yaml does not exist (not an error).
func loadProjectConfig(dir string) (*config.ProjectConfig, error) {
	_ = godotenv.Load()

	projectCfg, err := config.Load(dir)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
	}
	return projectCfg, nil
}

// logConnectionVerbose logs connection details. The password is never logged.
func logConnectionVerbose(logger tripload.Logger, connConfig *tripload.ConnectionConfig) {
	logger.Verbose("Connection resolved:")
	logger.Verbose("  Host: %s", connConfig.Host)
	logger.Verbose("  Port: %d", connConfig.Port)
	logger.Verbose("  User: %s", connConfig.Username)
	logger.Verbose("  Database: %s", connConfig.Database)
	logger.Verbose("  SSL Mode: %s", connConfig.SSLMode)
	logger.Verbose("  Auth Method: %s", connConfig.AuthMethod)
}
