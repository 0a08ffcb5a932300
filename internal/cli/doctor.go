// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - Health checks for the local setup.
//
// Command: doctor
// Short:   Run setup health checks
//
// Checks Performed:
//  1. Config Valid       - config.toml parses and validates
//  2. Ollama Installed   - the ollama binary is on PATH (warn only)
//  3. Ollama Running     - the server answers /api/tags
//  4. Model Available    - the configured model is installed
//  5. Storage Writable   - the data directory accepts new files
//  6. Logs Writable      - the log directory accepts new files
//
// Exit Codes:
//
//	0   No check failed
//	1   One or more checks failed
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ollachat/internal/config"
	"github.com/jeranaias/ollachat/internal/ollama"
)

// =============================================================================
// HEALTH CHECK TYPES
// =============================================================================

// CheckStatus is the outcome of one health check.
type CheckStatus int

const (
	CheckPass CheckStatus = iota
	CheckWarn
	CheckFail
)

// String returns the string representation of the check status.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarn:
		return "warn"
	case CheckFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns the styled marker for the status.
func (s CheckStatus) Symbol() string {
	switch s {
	case CheckPass:
		return SuccessStyle.Render("[OK]")
	case CheckWarn:
		return WarningStyle.Render("[!!]")
	default:
		return ErrorStyle.Render("[FAIL]")
	}
}

// MarshalText makes the status readable in --json output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// HealthCheck is a single check result.
type HealthCheck struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
	Fix     string      `json:"fix,omitempty"`
}

// Render returns the check as a line plus an optional fix hint.
func (c *HealthCheck) Render() string {
	result := fmt.Sprintf("%s %s", c.Status.Symbol(), c.Message)
	if c.Status != CheckPass && c.Fix != "" {
		result += "\n" + DimStyle.Render("     -> "+c.Fix)
	}
	return result
}

// =============================================================================
// DOCTOR COMMAND
// =============================================================================

func newDoctorCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"diag"},
		Short:   "Run setup health checks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			path, err := configPath(opts, nil)
			if err != nil {
				return err
			}
			checks := runChecks(ctx, path, opts.patch(), exec.LookPath)

			failed := 0
			for _, c := range checks {
				if c.Status == CheckFail {
					failed++
				}
			}
			if opts.JSON {
				if err := printJSON(cmd, checks); err != nil {
					return err
				}
			} else {
				writeChecks(cmd.OutOrStdout(), checks)
			}
			if failed > 0 {
				return &CommandError{Command: "doctor", Action: "check", Reason: fmt.Sprintf("%d check(s) failed", failed), Code: ExitError}
			}
			return nil
		},
	}
}

func writeChecks(w io.Writer, checks []*HealthCheck) {
	fmt.Fprintln(w, TitleStyle.Render("ollachat doctor"))
	var passed, warned, failed int
	for _, c := range checks {
		fmt.Fprintln(w, c.Render())
		switch c.Status {
		case CheckPass:
			passed++
		case CheckWarn:
			warned++
		default:
			failed++
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("%d passed, %d warnings, %d failed", passed, warned, failed)))
}

// runChecks runs every check against the config at path. lookPath finds
// the ollama binary. Directory checks are skipped when the config is broken.
func runChecks(ctx context.Context, path string, overrides config.SettingsPatch, lookPath func(string) (string, error)) []*HealthCheck {
	cfg, cfgCheck := checkConfig(path)
	settings := config.DefaultSettings()
	if cfg != nil {
		settings = cfg.Settings
	}
	settings = settings.Apply(overrides)
	client := ollama.NewClient(settings.OllamaURL)

	checks := []*HealthCheck{
		cfgCheck,
		checkOllamaInstalled(lookPath),
	}
	running := checkOllamaRunning(ctx, client)
	checks = append(checks, running)
	if running.Status == CheckPass {
		checks = append(checks, checkModelAvailable(ctx, client, settings.Model))
	}
	if cfg != nil {
		checks = append(checks,
			checkWritable("Storage Writable", cfg.Storage.Dir),
			checkWritable("Logs Writable", filepath.Dir(cfg.Logging.File)),
		)
	}
	return checks
}

func checkConfig(path string) (*config.Config, *HealthCheck) {
	check := &HealthCheck{Name: "Config Valid"}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Config invalid: %s", err)
		check.Fix = "Run: ollachat config reset"
		return nil, check
	}
	check.Status = CheckPass
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		check.Message = "Config valid (using defaults)"
	} else {
		check.Message = "Config valid: " + path
	}
	return cfg, check
}

func checkOllamaInstalled(lookPath func(string) (string, error)) *HealthCheck {
	check := &HealthCheck{Name: "Ollama Installed"}
	bin, err := lookPath("ollama")
	if err != nil {
		check.Status = CheckWarn
		check.Message = "ollama binary not found on PATH"
		switch runtime.GOOS {
		case "darwin":
			check.Fix = "Run: brew install ollama"
		case "windows":
			check.Fix = "Download from https://ollama.com/download"
		default:
			check.Fix = "Run: curl -fsSL https://ollama.com/install.sh | sh"
		}
		return check
	}
	check.Status = CheckPass
	check.Message = "Ollama installed: " + bin
	return check
}

func checkOllamaRunning(ctx context.Context, client *ollama.Client) *HealthCheck {
	check := &HealthCheck{Name: "Ollama Running"}
	if !client.TestConnection(ctx) {
		check.Status = CheckFail
		check.Message = "Ollama server not reachable at " + client.Endpoint()
		check.Fix = "Run: ollama serve"
		return check
	}
	check.Status = CheckPass
	check.Message = "Ollama running at " + client.Endpoint()
	return check
}

func checkModelAvailable(ctx context.Context, client *ollama.Client, name string) *HealthCheck {
	check := &HealthCheck{Name: "Model Available"}
	models, err := client.ListModels(ctx)
	if err != nil {
		check.Status = CheckWarn
		check.Message = fmt.Sprintf("Could not list models: %s", err)
		return check
	}
	if len(models) == 0 {
		check.Status = CheckFail
		check.Message = "No models installed"
		check.Fix = "Run: ollama pull llama3.2"
		return check
	}
	if name == "" {
		check.Status = CheckPass
		check.Message = fmt.Sprintf("No model selected; %s will be used", models[0].Name)
		return check
	}
	for _, m := range models {
		if m.Name == name || strings.HasPrefix(m.Name, name+":") {
			check.Status = CheckPass
			check.Message = "Model available: " + m.Name
			return check
		}
	}
	check.Status = CheckWarn
	check.Message = "Model not downloaded: " + name
	check.Fix = "Run: ollama pull " + name
	return check
}

func checkWritable(name, dir string) *HealthCheck {
	check := &HealthCheck{Name: name}
	if err := os.MkdirAll(dir, 0700); err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Could not create %s: %s", dir, err)
		return check
	}
	f, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("%s not writable: %s", dir, err)
		check.Fix = "Check permissions: chmod 700 " + dir
		return check
	}
	f.Close()
	os.Remove(f.Name())

	check.Status = CheckPass
	check.Message = dir + " writable"
	return check
}
