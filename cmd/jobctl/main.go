// jobctl is a command-line client for submitting jobs against a
// MediaCloud::JobManager broker, without needing to write a Go program
// that links the library.
//
// Usage:
//
//	jobctl [--json] [--priority P] [--retries N] <command> FUNCTION [--arg KEY=VALUE ...]
//
// The broker connection is read from the environment (RABBITMQ_URL or
// the MEDIACLOUD_JOBMANAGER_* variables).
//
// Commands:
//
//	run       Submit a job and block until its result (runJobSync)
//	enqueue   Submit a job and return its job id immediately (runJobAsync)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/broker"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/envconfig"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/mqtransport"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/rabbitmq"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/telemetry"
)

var version = "dev"

func main() {
	var jsonOutput bool
	var rawArgs []string
	var priority string
	var retries int

	rootCmd := &cobra.Command{
		Use:           "jobctl",
		Short:         "jobctl — submit jobs to a MediaCloud::JobManager broker",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON")
	rootCmd.PersistentFlags().StringSliceVar(&rawArgs, "arg", nil, "Job argument as KEY=VALUE (repeatable)")
	rootCmd.PersistentFlags().StringVar(&priority, "priority", "normal", "Job priority: low, normal, or high")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 0, "Retry count written into the task envelope (the worker retries per its own function settings)")

	rootCmd.AddCommand(
		newRunCmd(&rawArgs, &priority, &retries, &jsonOutput),
		newEnqueueCmd(&rawArgs, &priority, &retries, &jsonOutput),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRunCmd(rawArgs *[]string, priority *string, retries *int, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "run FUNCTION",
		Short: "Submit a job and block until its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newBroker()
			if err != nil {
				return err
			}
			defer b.Close()

			jobArgs, err := parseArgs(*rawArgs)
			if err != nil {
				return err
			}
			p, err := parsePriority(*priority)
			if err != nil {
				return err
			}

			result, err := b.RunJobSync(context.Background(), args[0], jobArgs, p, *retries)
			if err != nil {
				return err
			}
			return printResult(*jsonOutput, result)
		},
	}
}

func newEnqueueCmd(rawArgs *[]string, priority *string, retries *int, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue FUNCTION",
		Short: "Submit a job and return its job id immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newBroker()
			if err != nil {
				return err
			}
			defer b.Close()

			jobArgs, err := parseArgs(*rawArgs)
			if err != nil {
				return err
			}
			p, err := parsePriority(*priority)
			if err != nil {
				return err
			}

			jobID, err := b.RunJobAsync(context.Background(), args[0], jobArgs, p, *retries)
			if err != nil {
				return err
			}
			return printResult(*jsonOutput, jobID)
		},
	}
}

func newBroker() (*rabbitmq.Broker, error) {
	logger := telemetry.SetupLogger()
	pool := mqtransport.NewPool(logger)
	return rabbitmq.New(pool, envconfig.ConnConfig(), rabbitmq.Options{Logger: logger}), nil
}

func parsePriority(raw string) (broker.Priority, error) {
	switch strings.ToLower(raw) {
	case "low":
		return broker.PriorityLow, nil
	case "normal", "":
		return broker.PriorityNormal, nil
	case "high":
		return broker.PriorityHigh, nil
	default:
		return 0, fmt.Errorf("invalid priority %q, expected low, normal, or high", raw)
	}
}

// parseArgs turns a list of KEY=VALUE strings into a job args map.
// Values that parse as a number or bool are converted; everything else
// is kept as a string, matching Celery's loosely-typed kwargs.
func parseArgs(raw []string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	args := make(map[string]any, len(raw))
	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --arg %q, expected KEY=VALUE", kv)
		}
		args[parts[0]] = coerce(parts[1])
	}
	return args, nil
}

func coerce(raw string) any {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func printResult(jsonOutput bool, v any) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Println(v)
	return nil
}
