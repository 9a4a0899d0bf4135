// Package cosmosclient provides the main entry point for creating Cosmos DB clients
package cosmosclient

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fivetwenty-io/cosmos-client/internal/client"
	"github.com/fivetwenty-io/cosmos-client/pkg/cosmos"
)

// EmulatorEndpoint is the address of a locally running emulator.
const EmulatorEndpoint = "https://localhost:8081"

// New creates a new Cosmos DB client from config. The endpoint is normalized
// and the configuration validated before any request is made.
func New(ctx context.Context, config *cosmos.Config) (cosmos.Client, error) {
	if config == nil {
		return nil, cosmos.ErrConfigRequired
	}

	// Normalize endpoint
	endpoint := strings.TrimSuffix(strings.TrimSpace(config.Endpoint), "/")
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	config.Endpoint = endpoint

	err := config.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if config.SkipTLSVerify && !isDevelopmentEnvironment() {
		return nil, fmt.Errorf("%w (set COSMOS_DEV_MODE=true)", cosmos.ErrSkipTLSOnlyInDev)
	}

	c, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// isDevelopmentEnvironment checks if we're in a development environment.
func isDevelopmentEnvironment() bool {
	devMode := os.Getenv("COSMOS_DEV_MODE")

	return devMode == "true" || devMode == "1"
}

// NewWithMasterKey creates a new client signing requests with an account key.
func NewWithMasterKey(ctx context.Context, endpoint, masterKey string) (cosmos.Client, error) {
	return New(ctx, &cosmos.Config{
		Endpoint:  endpoint,
		MasterKey: masterKey,
	})
}

// NewWithResourceToken creates a new client authorized by a resource token.
func NewWithResourceToken(ctx context.Context, endpoint, token string) (cosmos.Client, error) {
	return New(ctx, &cosmos.Config{
		Endpoint:      endpoint,
		ResourceToken: token,
	})
}

// NewEmulator creates a client for the local emulator. The emulator uses a
// self-signed certificate, so COSMOS_DEV_MODE must be set.
func NewEmulator(ctx context.Context, masterKey string) (cosmos.Client, error) {
	return New(ctx, &cosmos.Config{
		Endpoint:      EmulatorEndpoint,
		MasterKey:     masterKey,
		SkipTLSVerify: true,
	})
}
