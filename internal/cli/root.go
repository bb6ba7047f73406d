package cli

import (
	"context"
	"fmt"

	"personakit/internal/client"
	"personakit/internal/common"
	"personakit/internal/config"
	"personakit/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "personakit",
	Short: "Generate, validate and edit weighted candidate personas",
	Long: `Personakit builds candidate personas from job descriptions: weighted skill
categories and subcategories that must each total 100%. It generates personas
with AI, checks weight distributions and recommended ranges, edits persona files
and saves them to a personakit server.`,
	SilenceUsage: true,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

func newClient(cfg *config.Config, logger *errors.Logger) *client.Client {
	return client.New(cfg.Client, logger)
}

// addOutputFlags registers --output and --format on cmd, with format completion from config
func addOutputFlags(cmd *cobra.Command, target *common.CommandConfig, outputHelp string) {
	cmd.Flags().StringVarP(&target.OutputFile, "output", "o", "", outputHelp)
	cmd.Flags().StringVar(&target.OutputFormat, "format", "", "Output format: json, yaml, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveFormat applies the configured default and validates the format of cmdConfig
func resolveFormat(cmd *cobra.Command, cmdConfig *common.CommandConfig) error {
	cfg := getConfigFromContext(cmd.Context())
	format, err := common.ResolveOutputFormat(cmdConfig.OutputFormat, cmdConfig.OutputFile,
		cfg.App.DefaultFormat, cfg.App.SupportedFormats)
	if err != nil {
		return err
	}
	cmdConfig.OutputFormat = format
	return nil
}

// documentFormat picks json or yaml for a persona file that must stay machine readable
func documentFormat(path, requested string) (string, error) {
	format, err := common.ResolveOutputFormat(requested, path, "json", []string{"json", "yaml"})
	if err != nil {
		return "", fmt.Errorf("persona files must be json or yaml: %w", err)
	}
	return format, nil
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(jobDescriptionCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
