package cli

import (
	"fmt"

	"personakit/internal/common"
	"personakit/internal/persona"
	"personakit/internal/types"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [persona-file]",
	Short: "Check a persona's weight distribution",
	Long: `Validate a persona file: category weights must total 100%, each
category's subcategory weights must total 100% and the persona needs a name.
Categories outside their recommended range are reported as warnings.

The command exits non-zero when the persona cannot be saved.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if validateOpts.OutputFormat == "" {
			validateOpts.OutputFormat = "text"
		}
		return resolveFormat(cmd, &validateOpts.CommandConfig)
	},
	RunE: runValidate,
}

var validateOpts struct {
	common.CommandConfig
	remote bool
}

func init() {
	addOutputFlags(validateCmd, &validateOpts.CommandConfig, "Report file to write (default: stdout)")
	validateCmd.Flags().BoolVar(&validateOpts.remote, "remote", false, "Validate on the server, using its stored baseline for saved personas")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	doc, err := common.NewFileProcessor(logger, cfg.App.MaxFileSize).LoadPersona(args[0])
	if err != nil {
		return err
	}

	var report types.ValidationReport
	if validateOpts.remote {
		report, err = newClient(cfg, logger).ValidatePersona(cmd.Context(), doc.PersonaTree, doc.Baseline)
		if err != nil {
			return fmt.Errorf("failed to validate persona: %w", err)
		}
	} else {
		report = persona.Validate(doc.PersonaTree, doc.Baseline)
	}

	if err := common.NewOutputHandler(logger).HandleOutput(report, validateOpts.CommandConfig); err != nil {
		return err
	}

	logger.Info("Persona validated",
		"file", args[0],
		"can_save", report.CanSave,
		"range_warnings", len(report.RangeWarnings))

	if !report.CanSave {
		if err := persona.BlockedError(doc.PersonaTree); err != nil {
			return err
		}
		return fmt.Errorf("persona cannot be saved")
	}
	return nil
}
