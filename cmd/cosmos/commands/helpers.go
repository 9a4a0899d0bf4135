package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fivetwenty-io/cosmos-client/internal/constants"
	"github.com/fivetwenty-io/cosmos-client/pkg/cosmos"
	"github.com/fivetwenty-io/cosmos-client/pkg/cosmosclient"
	"github.com/hashicorp/go-hclog"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Common string constants used throughout the commands package.
const (
	timeFormat = "2006-01-02 15:04:05"
	yes        = "y"
	natsBucket = "cosmos-documents"
)

// renderOutput writes data in the configured output format. Table output is
// delegated to renderTable.
func renderOutput(cmd *cobra.Command, data interface{}, renderTable func(table *tablewriter.Table) error) error {
	out := cmd.OutOrStdout()

	switch output := viper.GetString("output"); output {
	case constants.FormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

		return encoder.Encode(data)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(out)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(data)
	case constants.FormatTable, "":
		return renderTable(tablewriter.NewWriter(out))
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnsupportedOutput, output)
	}
}

// hclogLogger adapts an hclog.Logger to cosmos.Logger.
type hclogLogger struct {
	logger hclog.Logger
}

// newLogger creates the CLI logger. --verbose selects debug level.
func newLogger(w io.Writer) *hclogLogger {
	level := hclog.Info
	if viper.GetBool("verbose") {
		level = hclog.Debug
	}

	return &hclogLogger{logger: hclog.New(&hclog.LoggerOptions{
		Name:   "cosmos",
		Level:  level,
		Output: w,
	})}
}

// args flattens fields into hclog key/value pairs in key order.
func (l *hclogLogger) args(fields map[string]interface{}) []interface{} {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	args := make([]interface{}, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}

	return args
}

func (l *hclogLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug(msg, l.args(fields)...)
}

func (l *hclogLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info(msg, l.args(fields)...)
}

func (l *hclogLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn(msg, l.args(fields)...)
}

func (l *hclogLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error(msg, l.args(fields)...)
}

// buildClientConfig turns the CLI configuration into a client configuration.
func buildClientConfig(config *Config, logger cosmos.Logger) (*cosmos.Config, error) {
	if config.Endpoint == "" {
		return nil, constants.ErrNoEndpointConfigured
	}

	if config.MasterKey == "" && config.ResourceToken == "" {
		return nil, constants.ErrNoKeyConfigured
	}

	clientConfig := &cosmos.Config{
		Endpoint:         config.Endpoint,
		MasterKey:        config.MasterKey,
		ResourceToken:    config.ResourceToken,
		ConsistencyLevel: cosmos.ConsistencyLevel(config.ConsistencyLevel),
		SkipTLSVerify:    config.SkipSSLValidation,
		Logger:           logger,
		Debug:            viper.GetBool("verbose"),
	}

	if clientConfig.Debug {
		clientConfig.Interceptors = cosmos.NewInterceptorChain().
			AddRequestInterceptor(cosmos.LoggingInterceptor(logger)).
			AddResponseInterceptor(cosmos.LoggingResponseInterceptor(logger))
	}

	switch cosmos.CacheType(config.Cache) {
	case cosmos.CacheTypeMemory:
		clientConfig.Cache = cosmos.DefaultCacheConfig()
	case cosmos.CacheTypeNATS:
		clientConfig.Cache = cosmos.NewCacheBuilder().
			WithType(cosmos.CacheTypeNATS).
			WithNATSConfig(&cosmos.NATSKVConfig{URL: config.NATSURL, Bucket: natsBucket, TTL: constants.DefaultCacheTTL}).
			Config()
	case cosmos.CacheTypeNone, "":
	default:
		return nil, fmt.Errorf("%w: %s", cosmos.ErrUnsupportedCacheType, config.Cache)
	}

	return clientConfig, nil
}

// CreateClient creates a client from the current configuration.
func CreateClient(cmd *cobra.Command) (cosmos.Client, error) {
	clientConfig, err := buildClientConfig(loadConfig(), newLogger(cmd.ErrOrStderr()))
	if err != nil {
		return nil, err
	}

	return cosmosclient.New(commandContext(cmd), clientConfig)
}

// closeClient releases the client's cache connection, if any.
func closeClient(client cosmos.Client) {
	if closer, ok := client.(interface{ Close() }); ok {
		closer.Close()
	}
}

// commandContext returns the command's context or a background context.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

// requireDatabase returns the database selected by --database or the config.
func requireDatabase() (string, error) {
	database := viper.GetString("database")
	if database == "" {
		return "", fmt.Errorf("%w (use --database or 'cosmos config set database')", cosmos.ErrDatabaseRequired)
	}

	return database, nil
}

// requireCollection returns the database and collection of the current scope.
func requireCollection() (string, string, error) {
	database, err := requireDatabase()
	if err != nil {
		return "", "", err
	}

	collection := viper.GetString("collection")
	if collection == "" {
		return "", "", fmt.Errorf("%w (use --collection or 'cosmos config set collection')", cosmos.ErrCollectionRequired)
	}

	return database, collection, nil
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, prompt string) bool {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (y/N): ", prompt)

	response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	response = strings.ToLower(strings.TrimSpace(response))

	return response == yes || response == "yes"
}

// parsePartitionKey reads a partition key flag. JSON values are decoded, a
// JSON array gives a hierarchical key, anything else is taken as a string.
func parsePartitionKey(value string) (cosmos.PartitionKeys, error) {
	if value == "" {
		return nil, nil
	}

	var decoded interface{}

	err := json.Unmarshal([]byte(value), &decoded)
	if err != nil {
		return cosmos.NewPartitionKeys(value), nil
	}

	switch key := decoded.(type) {
	case []interface{}:
		return cosmos.NewPartitionKeys(key...), nil
	case map[string]interface{}:
		return nil, fmt.Errorf("%w: %s", constants.ErrPartitionKeyInvalid, value)
	default:
		return cosmos.NewPartitionKeys(key), nil
	}
}

// readDocumentInput reads a JSON object from --data, --file or "-" for stdin.
func readDocumentInput(cmd *cobra.Command, file, data string) (map[string]interface{}, error) {
	var raw []byte

	switch {
	case data != "":
		raw = []byte(data)
	case file == "-":
		input, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}

		raw = input
	case file != "":
		// #nosec G304 -- the file is chosen by the user running the CLI
		input, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}

		raw = input
	default:
		return nil, constants.ErrNoInput
	}

	var document map[string]interface{}

	err := json.Unmarshal(raw, &document)
	if err != nil || document == nil {
		return nil, constants.ErrDocumentInvalid
	}

	return document, nil
}

// formatValue renders a payload value for table output.
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return constants.NotAvailable
	case string:
		return v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(encoded)
	}
}
