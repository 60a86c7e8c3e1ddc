package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/deepnoodle-ai/dagflow"
	"github.com/deepnoodle-ai/dagflow/activities"
	"github.com/deepnoodle-ai/dagflow/postgres"
	"github.com/fatih/color"
)

// CLI configuration
type Config struct {
	WorkflowFile  string
	Inputs        map[string]any
	LogsDir       string
	ExecutionsDir string
	PostgresDSN   string
	Timeout       time.Duration
	Verbose       bool
	JSON          bool
	ShowInputs    bool
	ShowOutputs   bool
}

func main() {
	config := parseFlags()

	if config.WorkflowFile == "" {
		color.Red("Error: workflow file is required")
		flag.Usage()
		os.Exit(1)
	}
	if _, err := os.Stat(config.WorkflowFile); os.IsNotExist(err) {
		color.Red("Error: workflow file '%s' not found", config.WorkflowFile)
		os.Exit(1)
	}

	logger := setupLogger(config.Verbose)

	color.Blue("Loading workflow from: %s", config.WorkflowFile)
	wf, err := dagflow.LoadFile(config.WorkflowFile)
	if err != nil {
		log.Fatalf("Failed to load workflow: %v", err)
	}

	color.Cyan("Workflow: %s", wf.Name())
	if wf.Description() != "" {
		color.White("Description: %s", wf.Description())
	}

	if config.ShowInputs {
		showWorkflowInputs(wf)
		return
	}

	var stepLogger dagflow.StepLogger
	if config.LogsDir != "" {
		stepLogger = dagflow.NewFileStepLogger(config.LogsDir)
		color.Blue("Step logs: %s", config.LogsDir)
	} else {
		stepLogger = dagflow.NewNullStepLogger()
	}

	checkpointer, cleanup, err := setupCheckpointer(config)
	if err != nil {
		log.Fatalf("Failed to create checkpointer: %v", err)
	}
	defer cleanup()

	var formatter dagflow.WorkflowFormatter
	if !config.JSON {
		formatter = &consoleFormatter{}
	}

	execution, err := dagflow.NewExecution(dagflow.ExecutionOptions{
		Workflow:     wf,
		Inputs:       config.Inputs,
		Activities:   activities.All(),
		Logger:       logger,
		StepLogger:   stepLogger,
		Checkpointer: checkpointer,
		Formatter:    formatter,
	})
	if err != nil {
		log.Fatalf("Failed to create execution: %v", err)
	}

	ctx := context.Background()
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
		color.Yellow("Timeout: %v", config.Timeout)
	}

	// First interrupt cancels gracefully, second one kills the process.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		color.Yellow("Interrupt received, cancelling execution...")
		execution.RequestCancel()
		<-signals
		os.Exit(1)
	}()

	color.Green("Starting execution (ID: %s)...\n", execution.ID())

	result, err := execution.Run(ctx)
	if err != nil {
		log.Fatalf("Execution failed to run: %v", err)
	}
	showExecutionResult(result, config)

	if result.Status != dagflow.WorkflowStatusCompleted {
		os.Exit(1)
	}
}

func parseFlags() *Config {
	config := &Config{
		Inputs: make(map[string]any),
	}

	flag.StringVar(&config.WorkflowFile, "file", "", "Path to the YAML workflow definition file (required)")
	flag.StringVar(&config.WorkflowFile, "f", "", "Path to the YAML workflow definition file (shorthand)")

	var inputFlags stringSlice
	flag.Var(&inputFlags, "input", "Input parameter in format key=value (can be used multiple times)")
	flag.Var(&inputFlags, "i", "Input parameter in format key=value (shorthand, can be used multiple times)")

	flag.StringVar(&config.LogsDir, "logs", "", "Directory to store step logs (optional)")
	flag.StringVar(&config.ExecutionsDir, "executions", "", "Directory to store execution checkpoints (optional)")
	flag.StringVar(&config.PostgresDSN, "postgres", "", "PostgreSQL DSN for checkpoint storage (optional)")

	flag.DurationVar(&config.Timeout, "timeout", 0, "Execution timeout (e.g., 30s, 5m, 1h)")
	flag.DurationVar(&config.Timeout, "t", 0, "Execution timeout (shorthand)")

	flag.BoolVar(&config.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&config.Verbose, "v", false, "Enable verbose logging (shorthand)")

	flag.BoolVar(&config.JSON, "json", false, "Output results in JSON format")
	flag.BoolVar(&config.ShowInputs, "show-inputs", false, "Show workflow input requirements and exit")
	flag.BoolVar(&config.ShowOutputs, "show-outputs", true, "Show workflow outputs after execution (default: true)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `dagflow - Execute YAML-defined workflows

Usage: %s [options] -file <workflow.yaml>

Examples:
  # Execute a simple workflow
  %s -file example.yaml

  # Execute with inputs and logging
  %s -file workflow.yaml -input name=John -input count=5 -logs ./logs

  # Execute with timeout and checkpointing
  %s -file workflow.yaml -timeout 30s -executions ./checkpoints

Options:
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
		flag.PrintDefaults()

		fmt.Fprintf(os.Stderr, `
Supported Activities:
  print  - Print messages to console
  script - Execute Risor scripts over workflow state
  time   - Get current timestamp
  wait   - Wait for a specified duration
  fail   - Intentionally fail with a message
  http   - Make HTTP requests
  random - Generate random numbers, strings, and UUIDs

Input Format:
  Use -input key=value for each input parameter.
  Values are parsed as JSON if possible, otherwise as strings.

`)
	}

	flag.Parse()

	for _, input := range inputFlags {
		parts := strings.SplitN(input, "=", 2)
		if len(parts) != 2 {
			fmt.Fprintf(os.Stderr, "Error: invalid input format '%s'. Use key=value\n", input)
			os.Exit(1)
		}
		key, value := parts[0], parts[1]

		// Try to parse as JSON, fallback to string
		var parsedValue any
		if err := json.Unmarshal([]byte(value), &parsedValue); err != nil {
			parsedValue = value
		}
		config.Inputs[key] = parsedValue
	}

	return config
}

// Custom flag type for handling multiple input values
type stringSlice []string

func (s *stringSlice) String() string {
	return strings.Join(*s, ", ")
}

func (s *stringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func setupLogger(verbose bool) *slog.Logger {
	if verbose {
		return dagflow.NewLogger()
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func setupCheckpointer(config *Config) (dagflow.Checkpointer, func(), error) {
	noop := func() {}
	switch {
	case config.PostgresDSN != "":
		checkpointer, err := postgres.New(context.Background(), config.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		color.Blue("Checkpoints: postgres")
		return checkpointer, func() { checkpointer.Close() }, nil

	case config.ExecutionsDir != "":
		checkpointer, err := dagflow.NewFileCheckpointer(config.ExecutionsDir)
		if err != nil {
			return nil, noop, err
		}
		color.Blue("Checkpoints: %s", config.ExecutionsDir)
		return checkpointer, noop, nil

	default:
		return dagflow.NewNullCheckpointer(), noop, nil
	}
}

func showWorkflowInputs(wf *dagflow.Workflow) {
	inputs := wf.Inputs()
	if len(inputs) == 0 {
		color.Blue("No inputs required")
		return
	}

	color.Blue("Workflow inputs:")
	for _, input := range inputs {
		required := ""
		defaultValue := ""
		if input.Default != nil {
			if defaultBytes, err := json.Marshal(input.Default); err == nil {
				defaultValue = fmt.Sprintf(" [default: %s]", string(defaultBytes))
			}
		} else {
			required = " (required)"
		}
		fmt.Printf("  %s (%s)%s%s\n", input.Name, input.Type, required, defaultValue)
		if input.Description != "" {
			fmt.Printf("    %s\n", input.Description)
		}
	}
}

func showExecutionResult(result *dagflow.WorkflowResult, config *Config) {
	if config.JSON {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
		fmt.Println(string(encoded))
		return
	}

	fmt.Println()
	switch result.Status {
	case dagflow.WorkflowStatusCompleted:
		color.Green("Execution completed in %v", result.Duration())
	case dagflow.WorkflowStatusCancelled:
		color.Yellow("Execution cancelled after %v", result.Duration())
	default:
		color.Red("Execution %s after %v", result.Status, result.Duration())
		if result.Error != "" {
			color.Red("Error: %s", result.Error)
		}
	}

	color.White("Steps: %d completed, %d failed, %d skipped",
		len(result.CompletedSteps), len(result.FailedSteps), len(result.SkippedSteps))
	for _, name := range result.FailedStepNames() {
		color.Red("  failed: %s (%s)", name, result.FailedSteps[name].Error)
	}
	for _, name := range result.SkippedSteps {
		color.Yellow("  skipped: %s", name)
	}

	if config.ShowOutputs && len(result.Outputs) > 0 {
		color.Blue("Outputs:")
		for name, output := range result.Outputs {
			encoded, err := json.Marshal(output)
			if err != nil {
				fmt.Printf("  %s: %v\n", name, output)
				continue
			}
			fmt.Printf("  %s: %s\n", name, string(encoded))
		}
	}
}

// consoleFormatter prints step progress with color as the workflow runs.
type consoleFormatter struct{}

func (f *consoleFormatter) PrintStepStart(stepName, activityName string) {
	color.Cyan("-> %s (%s)", stepName, activityName)
}

func (f *consoleFormatter) PrintStepOutput(stepName string, content any) {
	color.Green("ok %s", stepName)
}

func (f *consoleFormatter) PrintStepError(stepName string, err error) {
	color.Red("!! %s: %v", stepName, err)
}
