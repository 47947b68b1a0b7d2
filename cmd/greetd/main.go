package main

import (
	stderrors "errors"
	"log/slog"
	"os"

	"greetd/internal/slogutil"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// doctor has already printed its report
		if !stderrors.Is(err, errChecksFailed) {
			logger := slogutil.NewLogger(os.Stderr, slog.LevelError)
			logger.Error("Command execution failed", "error", err.Error())
		}
		os.Exit(1)
	}
}
