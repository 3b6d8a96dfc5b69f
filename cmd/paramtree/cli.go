package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/born-ml/paramtree/internal/config"
	"github.com/born-ml/paramtree/internal/logger"
	"github.com/born-ml/paramtree/internal/metrics"
	"github.com/born-ml/paramtree/internal/nn"
	"github.com/born-ml/paramtree/internal/tensor"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0-dev"

// NewCLI builds the paramtree command tree.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:   "paramtree",
		Short: "Inspect and load weights into module trees",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			logger.Setup(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	rootCmd.PersistentFlags().String("device", "", "Target device (cpu, cuda, metal); overrides PARAMTREE_DEVICE")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (console, json)")
	rootCmd.PersistentFlags().Bool("metrics", false, "Record Prometheus metrics for weight loads; overrides PARAMTREE_METRICS")

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every parameter and buffer of a model",
		Args:  cobra.NoArgs,
		RunE:  DumpHandler,
	}
	dumpCmd.Flags().String("config", "", "Phi-3 config.json; the built-in demo model is used when empty")

	loadCmd := &cobra.Command{
		Use:   "load WEIGHTS",
		Short: "Merge a .safetensors or .gguf file into a model and report the outcome",
		Args:  cobra.ExactArgs(1),
		RunE:  LoadHandler,
	}
	loadCmd.Flags().String("config", "", "Phi-3 config.json; the built-in demo model is used when empty")
	loadCmd.Flags().Bool("map", false, "Translate GGUF tensor names using the file's architecture")
	loadCmd.Flags().Bool("dump", false, "Print the parameter table after loading")
	loadCmd.Flags().Bool("print-metrics", false, "Print recorded metrics in Prometheus text format")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the paramtree version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "paramtree version %s\n", Version)
		},
	}

	rootCmd.AddCommand(dumpCmd, loadCmd, versionCmd)

	return rootCmd
}

// resolveConfig reads PARAMTREE_* variables and applies any flags the user set.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("device") {
		s, _ := flags.GetString("device")
		switch {
		case strings.EqualFold(s, "auto"):
			cfg.Device = config.ResolveDevice()
		default:
			if cfg.Device, err = tensor.ParseDevice(s); err != nil {
				return cfg, err
			}
		}
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if flags.Changed("metrics") {
		cfg.Metrics, _ = flags.GetBool("metrics")
	}

	return cfg, cfg.Validate()
}

// buildModel assembles the model selected by --config on cfg.Device.
func buildModel(cmd *cobra.Command, cfg config.Config) (nn.Component, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return newDemoModel(cfg.Device)
	}

	pc, err := nn.LoadPhi3Config(path)
	if err != nil {
		return nil, err
	}
	return nn.NewPhi3ForCausalLM(pc, cfg.Device)
}

func DumpHandler(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	model, err := buildModel(cmd, cfg)
	if err != nil {
		return err
	}

	return nn.PrintParameters(cmd.OutOrStdout(), model)
}

func LoadHandler(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	model, err := buildModel(cmd, cfg)
	if err != nil {
		return err
	}

	var opts []nn.LoadOption
	if mapNames, _ := cmd.Flags().GetBool("map"); mapNames {
		opts = append(opts, nn.WithDetectedMapper())
	}

	report, err := nn.LoadWeights(model, args[0], cfg, opts...)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if err := nn.PrintReport(w, report); err != nil {
		return err
	}

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		fmt.Fprintln(w)
		if err := nn.PrintParameters(w, model); err != nil {
			return err
		}
	}

	if show, _ := cmd.Flags().GetBool("print-metrics"); show && cfg.Metrics {
		fmt.Fprintln(w)
		return metrics.WriteText(w)
	}
	return nil
}
