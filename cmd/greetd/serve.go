package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"greetd/internal/app"
	"greetd/internal/slogutil"
)

// shutdownTimeout bounds the graceful drain after a signal.
const shutdownTimeout = 10 * time.Second

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the greetd HTTP server. GET / returns the configured greeting;
every other path is 404. The database pool and cache client are constructed
before the listener is bound and closed after it stops.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (overrides server.host)")
}

func runServe(cmd *cobra.Command, args []string) error {
	root, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	factory := slogutil.NewLoggerFactory(root, cfg.Logging, levelOverride())
	logger, err := factory.ServerLogger(cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer factory.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, root, logger)
	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	port := boundPort(a.Addr(), cfg.Server.Port)
	logger.Info("Server is running", "addr", a.Addr())
	fmt.Fprintf(cmd.OutOrStdout(), "Server is running on http://localhost:%d\n", port)

	waitErr := a.Wait(ctx)
	if waitErr != nil {
		logger.Error("Server error", "error", waitErr.Error())
	} else {
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := a.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		logger.Error("Error during shutdown", "error", shutdownErr.Error())
	} else {
		logger.Info("Server stopped gracefully")
	}

	return stderrors.Join(waitErr, shutdownErr)
}

// boundPort extracts the port from a listener address, falling back to
// the configured one.
func boundPort(addr string, configured int) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return configured
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return configured
	}
	return port
}
