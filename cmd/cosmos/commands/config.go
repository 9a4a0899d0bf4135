package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fivetwenty-io/cosmos-client/internal/auth"
	"github.com/fivetwenty-io/cosmos-client/internal/constants"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Configuration keys, as used in the config file and as COSMOS_* variables.
const (
	keyEndpoint          = "endpoint"
	keyMasterKey         = "master_key"
	keyResourceToken     = "resource_token"
	keyDatabase          = "database"
	keyCollection        = "collection"
	keyConsistencyLevel  = "consistency_level"
	keyOutput            = "output"
	keySkipSSLValidation = "skip_ssl_validation"
	keyCache             = "cache"
	keyNATSURL           = "nats_url"
)

// Config represents the CLI configuration.
type Config struct {
	Endpoint          string `json:"endpoint,omitempty"          yaml:"endpoint,omitempty"`
	MasterKey         string `json:"master_key,omitempty"        yaml:"master_key,omitempty"`
	ResourceToken     string `json:"resource_token,omitempty"    yaml:"resource_token,omitempty"`
	Database          string `json:"database,omitempty"          yaml:"database,omitempty"`
	Collection        string `json:"collection,omitempty"        yaml:"collection,omitempty"`
	ConsistencyLevel  string `json:"consistency_level,omitempty" yaml:"consistency_level,omitempty"`
	Output            string `json:"output,omitempty"            yaml:"output,omitempty"`
	SkipSSLValidation bool   `json:"skip_ssl_validation"         yaml:"skip_ssl_validation"`
	Cache             string `json:"cache,omitempty"             yaml:"cache,omitempty"`
	NATSURL           string `json:"nats_url,omitempty"          yaml:"nats_url,omitempty"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage Cosmos DB CLI configuration including the account endpoint, credentials and default scope",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigSetKeyCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := maskSecrets(loadConfig())

			return renderOutput(cmd, config, func(table *tablewriter.Table) error {
				table.Header("Key", "Value")

				for _, row := range configRows(config) {
					_ = table.Append(row[0], row[1])
				}

				return table.Render()
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Keys: " + strings.Join(configKeys(), ", "),
		Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			config := loadConfig()

			err := setConfigValue(config, key, value)
			if err != nil {
				return err
			}

			err = saveConfig(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if isSecretKey(key) {
				value = constants.MaskedSecret
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %s\n", key, value)

			return nil
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			config := loadConfig()

			err := unsetConfigValue(config, key)
			if err != nil {
				return err
			}

			err = saveConfig(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", key)

			return nil
		},
	}
}

func newConfigSetKeyCommand() *cobra.Command {
	var resourceToken bool

	cmd := &cobra.Command{
		Use:   "set-key",
		Short: "Store the account key",
		Long:  "Read the master key (or a resource token with --resource-token) without echo and store it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readSecret(cmd, "Key: ")
			if err != nil {
				return err
			}

			config := loadConfig()

			if resourceToken {
				config.ResourceToken = secret
				config.MasterKey = ""
			} else {
				// Reject keys that can not sign requests before storing them.
				_, err = auth.NewMasterKeyAuthorizer(secret)
				if err != nil {
					return err
				}

				config.MasterKey = secret
				config.ResourceToken = ""
			}

			err = saveConfig(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Key stored")

			return nil
		},
	}

	cmd.Flags().BoolVar(&resourceToken, "resource-token", false, "store a resource token instead of a master key")

	return cmd
}

// readSecret reads a secret without echo from a terminal, or a line otherwise.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	var secret string

	if file, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), prompt)

		data, err := term.ReadPassword(int(file.Fd()))
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout())
		secret = string(data)
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}

		secret = string(data)
	}

	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", constants.ErrEmptyKey
	}

	return secret, nil
}

// loadConfig reads the configuration from viper, which merges the config
// file, COSMOS_* environment variables and flags.
func loadConfig() *Config {
	return &Config{
		Endpoint:          viper.GetString(keyEndpoint),
		MasterKey:         viper.GetString(keyMasterKey),
		ResourceToken:     viper.GetString(keyResourceToken),
		Database:          viper.GetString(keyDatabase),
		Collection:        viper.GetString(keyCollection),
		ConsistencyLevel:  viper.GetString(keyConsistencyLevel),
		Output:            viper.GetString(keyOutput),
		SkipSSLValidation: viper.GetBool(keySkipSSLValidation),
		Cache:             viper.GetString(keyCache),
		NATSURL:           viper.GetString(keyNATSURL),
	}
}

// configFilePath returns the file in use, or ~/.cosmos/config.yml.
func configFilePath() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".cosmos", "config.yml"), nil
}

// saveConfig writes config to the config file and updates viper.
func saveConfig(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	for _, row := range configRows(config) {
		viper.Set(row[0], row[1])
	}

	viper.Set(keySkipSSLValidation, config.SkipSSLValidation)

	return nil
}

// configRows lists every key with its value.
func configRows(config *Config) [][2]string {
	return [][2]string{
		{keyEndpoint, config.Endpoint},
		{keyMasterKey, config.MasterKey},
		{keyResourceToken, config.ResourceToken},
		{keyDatabase, config.Database},
		{keyCollection, config.Collection},
		{keyConsistencyLevel, config.ConsistencyLevel},
		{keyOutput, config.Output},
		{keySkipSSLValidation, fmt.Sprint(config.SkipSSLValidation)},
		{keyCache, config.Cache},
		{keyNATSURL, config.NATSURL},
	}
}

// configKeys returns the settable keys in sorted order.
func configKeys() []string {
	rows := configRows(&Config{})

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row[0])
	}

	sort.Strings(keys)

	return keys
}

func isSecretKey(key string) bool {
	return key == keyMasterKey || key == keyResourceToken
}

// maskSecrets returns a copy of config with credentials hidden.
func maskSecrets(config *Config) *Config {
	masked := *config

	if masked.MasterKey != "" {
		masked.MasterKey = constants.MaskedSecret
	}

	if masked.ResourceToken != "" {
		masked.ResourceToken = constants.MaskedSecret
	}

	return &masked
}

// setConfigValue sets one key on config.
func setConfigValue(config *Config, key, value string) error {
	switch key {
	case keyEndpoint:
		config.Endpoint = value
	case keyMasterKey:
		config.MasterKey = value
	case keyResourceToken:
		config.ResourceToken = value
	case keyDatabase:
		config.Database = value
	case keyCollection:
		config.Collection = value
	case keyConsistencyLevel:
		config.ConsistencyLevel = value
	case keyOutput:
		switch value {
		case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
			config.Output = value
		default:
			return fmt.Errorf("%w: %s", constants.ErrUnsupportedOutput, value)
		}
	case keySkipSSLValidation:
		config.SkipSSLValidation = value == constants.BooleanTrue || value == "1"
	case keyCache:
		config.Cache = value
	case keyNATSURL:
		config.NATSURL = value
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return nil
}

// unsetConfigValue clears one key on config.
func unsetConfigValue(config *Config, key string) error {
	switch key {
	case keySkipSSLValidation:
		config.SkipSSLValidation = false
	case keyOutput:
		config.Output = ""
	default:
		return setConfigValue(config, key, "")
	}

	return nil
}
