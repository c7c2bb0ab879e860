package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/toolshed/internal/config"
)

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Overall   bool             `json:"overall"`
}

// Check represents an individual health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Healthy bool   `json:"healthy"`
}

func (s *HealthStatus) record(name string, healthy bool, message string) {
	c := Check{Status: "healthy", Message: message, Healthy: healthy}
	if !healthy {
		c.Status = "unhealthy"
		s.Overall = false
		s.Status = "unhealthy"
	}
	s.Checks[name] = c
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check a running toolshed server",
	Long: `Checks that a toolshed server answers /health and that the preference
database directory is writable.

This command is used by container health checks and readiness probes.`,
	Args: cobra.NoArgs,
	RunE: runHealthCheck,
}

var (
	healthURL     string
	healthTimeout time.Duration
	healthVerbose bool
)

func init() {
	rootCmd.AddCommand(healthCmd)

	healthCmd.Flags().StringVar(&healthURL, "url", "http://localhost:8080", "Base URL of the server")
	healthCmd.Flags().DurationVarP(&healthTimeout, "timeout", "t", 3*time.Second, "Timeout for health checks")
	healthCmd.Flags().BoolVarP(&healthVerbose, "verbose", "v", false, "Verbose health check output")
}

func runHealthCheck(cmd *cobra.Command, args []string) error {
	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]Check),
		Overall:   true,
	}

	checkHTTPServer(status, &http.Client{Timeout: healthTimeout}, healthURL)
	if cfg, err := config.Load(); err != nil {
		status.record("config", false, err.Error())
	} else {
		checkDataDir(status, filepath.Dir(cfg.Storage.Path))
	}

	out := cmd.OutOrStdout()
	if healthVerbose {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		_ = encoder.Encode(status)
	} else if status.Overall {
		fmt.Fprintln(out, "All health checks passed")
	} else {
		fmt.Fprintln(out, "Health checks failed")
		for name, check := range status.Checks {
			if !check.Healthy {
				fmt.Fprintf(out, "  - %s: %s\n", name, check.Message)
			}
		}
	}

	if !status.Overall {
		return errors.New("health checks failed")
	}
	return nil
}

// checkHTTPServer asks the server for its own health report.
func checkHTTPServer(status *HealthStatus, client *http.Client, base string) {
	resp, err := client.Get(base + "/health")
	if err != nil {
		status.record("http_server", false, fmt.Sprintf("Failed to connect to server: %v", err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		status.record("http_server", false, fmt.Sprintf("Unreadable health response: %v", err))
		return
	}
	if resp.StatusCode != http.StatusOK || body.Status != "healthy" {
		status.record("http_server", false, fmt.Sprintf("Server reports %q (status %d)", body.Status, resp.StatusCode))
		return
	}
	status.record("http_server", true, "Server "+body.Version+" responding")
}

// checkDataDir verifies the preference database directory is writable.
func checkDataDir(status *HealthStatus, dir string) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		status.record("data_dir", false, err.Error())
		return
	}
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		status.record("data_dir", false, fmt.Sprintf("%s is not writable: %v", dir, err))
		return
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	status.record("data_dir", true, dir)
}
