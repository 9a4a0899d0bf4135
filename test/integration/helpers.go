//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	Endpoint   string
	MasterKey  string
	CosmosPath string
	Emulator   bool
	Verbose    bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		Endpoint:   os.Getenv("COSMOS_ENDPOINT"),
		MasterKey:  os.Getenv("COSMOS_MASTER_KEY"),
		CosmosPath: getCosmosPath(),
		Emulator:   os.Getenv("COSMOS_EMULATOR") == "true",
		Verbose:    os.Getenv("COSMOS_VERBOSE") == "true",
	}
}

// getCosmosPath determines the path to the cosmos binary.
func getCosmosPath() string {
	if path := os.Getenv("COSMOS_BINARY_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"../../cosmos",
		"./cosmos",
		"../cosmos",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "cosmos"
}

// SkipIfMissingConfig skips the test unless an account is configured.
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.Endpoint == "" || config.MasterKey == "" {
		t.Skip("COSMOS_ENDPOINT or COSMOS_MASTER_KEY not set, skipping integration test")
	}

	if _, err := exec.LookPath(config.CosmosPath); err != nil {
		t.Skipf("cosmos binary not found at %s, skipping integration test", config.CosmosPath)
	}
}

// CommandRunner runs the cosmos binary against the configured account with
// an isolated home directory.
type CommandRunner struct {
	config *TestConfig
	home   string
	t      *testing.T
}

// NewCommandRunner creates a new command runner.
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	return &CommandRunner{
		config: config,
		home:   t.TempDir(),
		t:      t,
	}
}

func (runner *CommandRunner) environment() []string {
	env := append(os.Environ(),
		"HOME="+runner.home,
		"COSMOS_ENDPOINT="+runner.config.Endpoint,
		"COSMOS_MASTER_KEY="+runner.config.MasterKey,
	)

	if runner.config.Emulator {
		env = append(env, "COSMOS_DEV_MODE=true", "COSMOS_SKIP_SSL_VALIDATION=true")
	}

	return env
}

// Run executes a cosmos command and returns its output.
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	return runner.RunWithInput("", args...)
}

// RunWithInput executes a cosmos command with stdin input.
func (runner *CommandRunner) RunWithInput(input string, args ...string) (stdout, stderr string, err error) {
	cmd := exec.Command(runner.config.CosmosPath, args...) // #nosec G204 -- test binary
	cmd.Env = runner.environment()
	cmd.Stdin = strings.NewReader(input)

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.CosmosPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// RunJSON executes a command with JSON output and decodes it into target.
func (runner *CommandRunner) RunJSON(target interface{}, args ...string) error {
	stdout, stderr, err := runner.Run(append(args, "--output", "json")...)
	if err != nil {
		return fmt.Errorf("%w: %s", err, stderr)
	}

	err = json.Unmarshal([]byte(stdout), target)
	if err != nil {
		return fmt.Errorf("decoding output %q: %w", stdout, err)
	}

	return nil
}

// GenerateTestName creates a unique test resource name.
func GenerateTestName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// CleanupDatabase deletes a test database and everything in it.
func (runner *CommandRunner) CleanupDatabase(name string) {
	stdout, stderr, err := runner.Run("databases", "delete", name, "--force")
	if err != nil && runner.config.Verbose {
		runner.t.Logf("Cleanup warning for database %s: %s\nStderr: %s", name, stdout, stderr)
	}
}

// WaitForCondition waits for a condition to be met with timeout.
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	timeoutChan := time.After(timeout)

	for {
		select {
		case <-ticker.C:
			if condition() {
				return
			}
		case <-timeoutChan:
			t.Fatalf("Timeout waiting for condition: %s", message)
		}
	}
}
