package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/spf13/cobra"

	"github.com/msrp-tools/msrp-contract-tests/framework/harness"
	"github.com/msrp-tools/msrp-contract-tests/framework/ldtest"
)

type commandParams struct {
	endpoint     string
	configFile   string
	filters      ldtest.RegexFilters
	spawnTimeout time.Duration
	waitTimeout  time.Duration
	killGrace    time.Duration
	debug        bool
	debugAll     bool
	jsonOutput   bool
}

func newRootCommand(params *commandParams, run func(cmd *cobra.Command) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "msrp-contract-tests",
		Short: "Run the MSRP endpoint contract tests",
		Long: `Run the MSRP endpoint contract tests against an endpoint implementation.

Each test launches its own endpoint processes with the given command, drives them
through line-delimited JSON commands on stdin, and checks the events they write to
stdout.

Example:
  msrp-contract-tests --endpoint "node endpoint.js"
  msrp-contract-tests --config harness.yaml --run negotiation --debug`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&params.endpoint, "endpoint", "", "command that starts an endpoint process (split on whitespace)")
	flags.StringVar(&params.configFile, "config", "", "YAML harness configuration file")
	flags.Var(&params.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	flags.Var(&params.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	flags.DurationVar(&params.spawnTimeout, "spawn-timeout", harness.DefaultSpawnTimeout, "how long to wait for an endpoint to become ready")
	flags.DurationVar(&params.waitTimeout, "wait-timeout", harness.DefaultWaitTimeout, "how long to wait for each expected event")
	flags.DurationVar(&params.killGrace, "kill-grace", harness.DefaultKillGrace, "how long an interrupted endpoint has to exit before it is killed")
	flags.BoolVar(&params.debug, "debug", false, "enable debug logging for failed tests")
	flags.BoolVar(&params.debugAll, "debug-all", false, "enable debug logging for all tests")
	flags.BoolVar(&params.jsonOutput, "json", false, "print the results as JSON at the end of the run")

	return cmd
}

// harnessConfig builds the harness configuration from the config file, if any, and then applies
// any flags that were set explicitly.
func (p *commandParams) harnessConfig(cmd *cobra.Command) (harness.Config, error) {
	var config harness.Config
	if p.configFile != "" {
		c, err := harness.LoadConfigFile(p.configFile)
		if err != nil {
			return harness.Config{}, err
		}
		config = c
	}
	if p.endpoint != "" {
		config.Endpoint.Command = strings.Fields(p.endpoint)
	}
	flags := cmd.Flags()
	if flags.Changed("spawn-timeout") || config.Timeouts.Spawn == 0 {
		config.Timeouts.Spawn = p.spawnTimeout
	}
	if flags.Changed("wait-timeout") || config.Timeouts.Wait == 0 {
		config.Timeouts.Wait = p.waitTimeout
	}
	if flags.Changed("kill-grace") || config.Timeouts.KillGrace == 0 {
		config.Timeouts.KillGrace = p.killGrace
	}
	if err := config.Validate(); err != nil {
		return harness.Config{}, fmt.Errorf("%w (use --endpoint or --config)", err)
	}
	return config, nil
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}
