package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"greetd/internal/app"
	"greetd/internal/config"
	"greetd/internal/errors"
	"greetd/internal/slogutil"
)

// errChecksFailed makes the process exit 1 after the report is printed.
var errChecksFailed = stderrors.New("one or more checks failed")

var doctorJSON bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, database and cache",
	Long: `Validate the configuration, build the database pool and cache client,
and ping each one. No HTTP listener is started. Exits 1 if any check fails.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(doctorCmd)
}

// DoctorCheck is the result of one check
type DoctorCheck struct {
	Name           string             `json:"name"`
	Status         string             `json:"status"`
	Driver         string             `json:"driver,omitempty"`
	Target         string             `json:"target,omitempty"`
	Message        string             `json:"message,omitempty"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty"`
}

// DoctorResponse is the doctor report
type DoctorResponse struct {
	Healthy    bool          `json:"healthy"`
	Checks     []DoctorCheck `json:"checks"`
	DurationMs int64         `json:"durationMs"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	start := time.Now()

	root, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slogutil.NewDiscardLogger()
	if level := levelOverride(); level != nil {
		logger = slogutil.NewLogger(cmd.ErrOrStderr(), *level)
	}

	resp := diagnose(cfg, root, logger)
	resp.DurationMs = time.Since(start).Milliseconds()

	if doctorJSON {
		out, err := formatJSON(resp)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	} else {
		writeDoctorHuman(cmd.OutOrStdout(), resp)
	}

	if !resp.Healthy {
		return errChecksFailed
	}
	return nil
}

// diagnose runs the config check and, if it passes, pings every handle.
func diagnose(cfg *config.Config, root string, logger *slog.Logger) *DoctorResponse {
	resp := &DoctorResponse{Healthy: true}

	if err := validateConfig(cfg); err != nil {
		resp.Healthy = false
		resp.Checks = append(resp.Checks, failedCheck("config", "", "", err))
		return resp
	}
	resp.Checks = append(resp.Checks, DoctorCheck{Name: "config", Status: "pass"})

	a := app.New(cfg, root, logger)
	defer func() { _ = a.Shutdown(context.Background()) }()

	if err := a.Open(); err != nil {
		resp.Healthy = false
		resp.Checks = append(resp.Checks, failedCheck("startup", "", "", err))
		return resp
	}

	targets := map[string][2]string{
		app.CheckDatabase: {a.Pool().Driver(), a.Pool().Target()},
		app.CheckCache:    {a.Cache().Driver(), a.Cache().Target()},
	}

	results := a.HealthCheck()
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		driver, target := targets[name][0], targets[name][1]
		if err := results[name]; err != nil {
			resp.Healthy = false
			resp.Checks = append(resp.Checks, failedCheck(name, driver, target, err))
			continue
		}
		resp.Checks = append(resp.Checks, DoctorCheck{Name: name, Status: "pass", Driver: driver, Target: target})
	}
	return resp
}

func failedCheck(name, driver, target string, err error) DoctorCheck {
	check := DoctorCheck{
		Name:    name,
		Status:  "fail",
		Driver:  driver,
		Target:  target,
		Message: err.Error(),
	}
	var coded *errors.Error
	if stderrors.As(err, &coded) {
		check.SuggestedFixes = coded.SuggestedFixes
	}
	return check
}

func writeDoctorHuman(w io.Writer, resp *DoctorResponse) {
	fmt.Fprintln(w, "greetd doctor")
	fmt.Fprintln(w, strings.Repeat("-", 40))

	for _, c := range resp.Checks {
		mark := "ok"
		if c.Status != "pass" {
			mark = "FAIL"
		}
		line := fmt.Sprintf("[%-4s] %s", mark, c.Name)
		if c.Driver != "" {
			line += fmt.Sprintf(" (%s %s)", c.Driver, c.Target)
		}
		fmt.Fprintln(w, line)
		if c.Message != "" {
			fmt.Fprintf(w, "       %s\n", c.Message)
		}
		for _, fix := range c.SuggestedFixes {
			switch {
			case fix.Command != "":
				fmt.Fprintf(w, "       fix: %s (%s)\n", fix.Command, fix.Description)
			case fix.Key != "":
				fmt.Fprintf(w, "       fix: edit %s (%s)\n", fix.Key, fix.Description)
			}
		}
	}

	fmt.Fprintln(w)
	if resp.Healthy {
		fmt.Fprintln(w, "All checks passed.")
	} else {
		fmt.Fprintln(w, "Some checks failed.")
	}
	fmt.Fprintf(w, "(Diagnostics took %dms)\n", resp.DurationMs)
}
