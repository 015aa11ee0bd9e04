package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"indexsheetsync/internal/api"
	"indexsheetsync/internal/app"
	"indexsheetsync/internal/scheduler"
	"indexsheetsync/internal/utils"
)

func main() {
	configDir := flag.String("config", "configs", "directory containing config.yaml")
	flag.Parse()

	config, err := utils.LoadConfig(*configDir)
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := utils.NewAppLogger(config.Log.Level, config.Log.Format)

	a, err := app.New(config, logger)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, logger, a.Runner)
	if err := sched.Register(config.Schedule.Cron); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	if config.Schedule.RunOnStart {
		go sched.RunNow()
	}

	server := api.NewServer(logger, config, a.Runner, a.History)
	if err := server.Start(); err != nil {
		logger.Error("Error starting server: %v", err)
		cancel()
		sched.Stop()
		a.Close()
		os.Exit(1)
	}
	cancel()
}
