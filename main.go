package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"indexsheetsync/internal/app"
	"indexsheetsync/internal/utils"
)

func main() {
	configDir := flag.String("config", "configs", "directory containing config.yaml")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, *configDir))
}

// run performs one update and returns the process exit code: 1 when the
// configuration is unusable or the run aborted, 0 otherwise. Series that
// failed after their retry do not change the exit code.
func run(ctx context.Context, configDir string) int {
	config, err := utils.LoadConfig(configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		return 1
	}

	logger := utils.NewAppLogger(config.Log.Level, config.Log.Format)

	a, err := app.New(config, logger)
	if err != nil {
		logger.Error("%v", err)
		return 1
	}
	defer a.Close()

	report, err := a.Runner.Trigger(ctx)
	if report != nil {
		fmt.Print(report.Summary())
	}
	if err != nil {
		return 1
	}
	return 0
}
