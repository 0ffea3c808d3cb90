package main

import (
	"fmt"
	"os"

	"github.com/RichardoC/csvchat/internal/config"
	"github.com/RichardoC/csvchat/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool
	filePath   string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "csvchat",
	Short: "Chat with your CSV files",
	Long: `csvchat answers questions about CSV files. A language model decides which
dataset tools to run (inspect, analyze a column, query) and phrases the answer.

Model credentials come from csvchat.yaml, a .env file or the environment
(AZURE_OPENAI_* or OPENAI_*).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		env := config.LoadEnvFile()

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Logging.Development)
		if err != nil {
			return err
		}
		if env.Loaded {
			logger.Debug("Loaded environment file", zap.String("path", env.Path), zap.Int("keys", env.Keys))
		} else if env.Err != nil {
			logger.Warn("Failed to load environment file", zap.String("path", env.Path), zap.Error(env.Err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Ask the assistant one question about a CSV file",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Answer a simple query without a language model",
	Long: `Runs the built-in query resolver directly. Supported queries:
  - count rows / how many rows / number of rows
  - list columns / what columns / column names
  - summary statistics / describe / overview
  - unique values in <column>
  - sum/mean/average/max/min of <column>`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show a CSV file's shape and first rows, or one column's statistics",
	Args:  cobra.NoArgs,
	RunE:  runInspect,
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Send one prompt to the configured model to check connectivity",
	Args:  cobra.ArbitraryArgs,
	RunE:  runPing,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "csvchat.yaml", "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	for _, cmd := range []*cobra.Command{askCmd, queryCmd, inspectCmd} {
		cmd.Flags().StringVarP(&filePath, "file", "f", "", "CSV file to use (default: the demo dataset)")
	}
	inspectCmd.Flags().String("column", "", "Analyze this column instead of the whole file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(pingCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
