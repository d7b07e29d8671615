package fakeendpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/msrp-tools/msrp-contract-tests/framework"
	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

// LaunchConfigFromEnv reads the launch configuration that the harness passes to every endpoint
// process.
func LaunchConfigFromEnv() (servicedef.LaunchConfig, error) {
	var launch servicedef.LaunchConfig
	data := os.Getenv(servicedef.ConfigEnvVar)
	if data == "" {
		return launch, fmt.Errorf("%s is not set", servicedef.ConfigEnvVar)
	}
	if err := json.Unmarshal([]byte(data), &launch); err != nil {
		return launch, fmt.Errorf("invalid %s: %w", servicedef.ConfigEnvVar, err)
	}
	return launch, nil
}

// Main runs a reference endpoint on the process's standard streams and returns the exit code.
// Diagnostic output goes to standard error.
func Main() int {
	var logger framework.Logger = framework.NullLogger()
	if zapLogger, err := framework.NewZapLogger(); err == nil {
		defer func() { _ = zapLogger.Sync() }()
		logger = zapLogger
	}

	launch, err := LaunchConfigFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := Run(ctx, launch, os.Stdin, os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
