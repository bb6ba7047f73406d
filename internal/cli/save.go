package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"personakit/internal/common"
	"personakit/internal/errors"
	"personakit/internal/persona"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save [persona-file]",
	Short: "Save a persona to the server",
	Long: `Save a persona file to the server. Personas with an id are updated,
others are created.

Saving is refused while category or subcategory weights do not total 100% or
the persona has no name. When a category weight is outside its recommended
range you are asked to go back or save anyway; --save-anyway answers for you.

The saved persona, with its id and baseline, is written back to the file
(or to --output).`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

var saveOpts struct {
	output     string
	format     string
	saveAnyway bool
}

// ErrSaveCancelled is returned when a range warning is answered with "Go back"
var ErrSaveCancelled = stderrors.New("save cancelled, persona left unchanged")

// confirmRangeWarning asks whether to save despite range warnings
var confirmRangeWarning = func(cmd *cobra.Command, warnings map[int]string) (bool, error) {
	printWarnings(cmd.ErrOrStderr(), warnings)
	prompt := promptui.Select{
		Label:  "Some category weights are outside their recommended range",
		Items:  []string{"Go back", "Save anyway"},
		Stdout: nopCloser{cmd.ErrOrStderr()},
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return false, err
	}
	return idx == 1, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func init() {
	saveCmd.Flags().StringVarP(&saveOpts.output, "output", "o", "", "Write the saved persona here instead of back to the input file")
	saveCmd.Flags().StringVar(&saveOpts.format, "format", "", "Persona file format: json or yaml (default from extension)")
	saveCmd.Flags().BoolVar(&saveOpts.saveAnyway, "save-anyway", false, "Save without asking when weights are outside their recommended range")
}

func runSave(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	output := saveOpts.output
	if output == "" {
		output = args[0]
	}
	format, err := documentFormat(output, saveOpts.format)
	if err != nil {
		return err
	}

	doc, err := common.NewFileProcessor(logger, cfg.App.MaxFileSize).LoadPersona(args[0])
	if err != nil {
		return err
	}

	editor := persona.NewEditor(newClient(cfg, logger), logger)
	if len(doc.Baseline) > 0 {
		editor.LoadWithBaseline(doc.PersonaTree, doc.Baseline)
	} else {
		editor.Load(doc.PersonaTree)
	}

	if err := submitPersona(cmd.Context(), cmd, editor, saveOpts.saveAnyway); err != nil {
		return err
	}

	saved := persona.SaveRequest{PersonaTree: editor.Tree(), Baseline: editor.Baseline()}
	if err := common.NewOutputHandler(logger).HandleOutput(saved, common.CommandConfig{
		OutputFile:   output,
		OutputFormat: format,
	}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved persona %s\n", saved.ID)
	return nil
}

// submitPersona runs the editor's save flow, resolving a range warning with
// saveAnyway or by asking.
func submitPersona(ctx context.Context, cmd *cobra.Command, editor *persona.Editor, saveAnyway bool) error {
	outcome, err := editor.Submit(ctx)
	switch outcome {
	case persona.OutcomeSaved:
		return nil
	case persona.OutcomeBlocked, persona.OutcomeFailed:
		return err
	}

	proceed := saveAnyway
	if !proceed {
		if proceed, err = confirmRangeWarning(cmd, editor.Warnings()); err != nil {
			_ = editor.GoBack()
			return errors.NewValidationError(errors.ErrCodeInvalidRequest, "range warning not confirmed", err)
		}
	}
	if !proceed {
		if err := editor.GoBack(); err != nil {
			return err
		}
		return ErrSaveCancelled
	}

	outcome, err = editor.SaveAnyway(ctx)
	if outcome != persona.OutcomeSaved {
		return err
	}
	return nil
}

func printWarnings(w io.Writer, warnings map[int]string) {
	for _, pos := range persona.SortedWarningPositions(warnings) {
		fmt.Fprintf(w, "  ! category %d: %s\n", pos, warnings[pos])
	}
}
