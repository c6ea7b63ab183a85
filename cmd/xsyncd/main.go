package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/zeusync/xsyncd/internal/daemon"
	"github.com/zeusync/xsyncd/internal/injector"
)

func main() {
	configPath := pflag.StringP("config", "c", daemon.DefaultConfigPath, "path to the daemon configuration file")
	display := pflag.StringP("display", "d", "", "X display to manage (default $DISPLAY)")
	settingsPath := pflag.String("settings", "", "settings store file (overrides the config file)")
	logLevel := pflag.String("log-level", "", "log level: debug, info, warn or error")
	pflag.Parse()

	cfg, err := daemon.LoadConfig(*configPath, !pflag.CommandLine.Changed("config"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(2)
	}
	if *display != "" {
		cfg.Display = *display
	}
	if *settingsPath != "" {
		cfg.SettingsPath = *settingsPath
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(2)
	}

	d, err := injector.InitializeDaemon(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error creating daemon:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error starting daemon:", err)
		os.Exit(1)
	}

	runErr := d.Run(ctx)
	if err := d.Stop(); err != nil {
		fmt.Fprintln(os.Stderr, "Error stopping daemon:", err)
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, "Daemon exited:", runErr)
		os.Exit(1)
	}
}
