package cli

import (
	"fmt"

	"personakit/internal/common"
	"personakit/internal/persona"
	"personakit/internal/types"

	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a persona file by hand",
	Long: `Create a persona file without generation. With --from the categories of an
existing persona file are used as a template; its id is dropped so saving
creates a new persona. The template's weights become the baseline.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		logger := getLoggerFromContext(cmd.Context())

		format, err := documentFormat(newOpts.output, newOpts.format)
		if err != nil {
			return err
		}

		mode := persona.CreateMode{}
		if newOpts.from != "" {
			doc, err := common.NewFileProcessor(logger, cfg.App.MaxFileSize).LoadPersona(newOpts.from)
			if err != nil {
				return err
			}
			mode.Initial = &doc.PersonaTree
		}

		editor, err := persona.Open(cmd.Context(), mode, nil, nil, logger)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("name") {
			if err := editor.Apply(func(t types.PersonaTree) types.PersonaTree { return persona.UpdateName(t, newOpts.name) }); err != nil {
				return err
			}
		}

		doc := persona.SaveRequest{PersonaTree: editor.Tree(), Baseline: editor.Baseline()}
		return common.NewOutputHandler(logger).HandleOutput(doc, common.CommandConfig{
			OutputFile:   newOpts.output,
			OutputFormat: format,
		})
	},
}

var newOpts struct {
	output string
	format string
	from   string
	name   string
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [persona-id]",
	Short: "Download a saved persona for editing",
	Long: `Fetch a saved persona and its stored baseline from the server. Without an
id the persona recorded in the wizard session is fetched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		logger := getLoggerFromContext(cmd.Context())

		format, err := documentFormat(fetchOpts.output, fetchOpts.format)
		if err != nil {
			return err
		}

		var mode persona.Mode
		if len(args) == 1 {
			mode = persona.EditMode{PersonaID: args[0]}
		} else {
			h, ok := loadSession(cfg, logger)
			if !ok || h.PersonaID == "" {
				return fmt.Errorf("a persona id is required when the wizard session has none")
			}
			if mode, err = h.Mode(); err != nil {
				return err
			}
		}

		source := newRemoteSource(newClient(cfg, logger), false)
		editor, err := persona.Open(cmd.Context(), mode, source, nil, logger)
		if err != nil {
			return fmt.Errorf("failed to fetch persona: %w", err)
		}

		tree := editor.Tree()
		doc := persona.SaveRequest{PersonaTree: tree, Baseline: editor.Baseline()}
		if stored, ok := source.baselines[tree.ID]; ok && len(stored) > 0 {
			doc.Baseline = stored
		}
		if err := common.NewOutputHandler(logger).HandleOutput(doc, common.CommandConfig{
			OutputFile:   fetchOpts.output,
			OutputFormat: format,
		}); err != nil {
			return err
		}
		logger.Info("Persona fetched", "persona_id", tree.ID, "categories", len(tree.Categories))
		return nil
	},
}

var fetchOpts struct {
	output string
	format string
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved personas",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if listOpts.OutputFormat == "" {
			listOpts.OutputFormat = "text"
		}
		return resolveFormat(cmd, &listOpts.CommandConfig)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		logger := getLoggerFromContext(cmd.Context())

		personas, err := newClient(cfg, logger).ListPersonas(cmd.Context(), listOpts.roleID)
		if err != nil {
			return fmt.Errorf("failed to list personas: %w", err)
		}
		return common.NewOutputHandler(logger).HandleOutput(personas, listOpts.CommandConfig)
	},
}

var listOpts struct {
	common.CommandConfig
	roleID string
}

var deleteCmd = &cobra.Command{
	Use:   "delete [persona-id]",
	Short: "Delete a saved persona",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		logger := getLoggerFromContext(cmd.Context())

		if err := newClient(cfg, logger).DeletePersona(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete persona: %w", err)
		}
		logger.Info("Persona deleted", "persona_id", args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted persona %s\n", args[0])
		return nil
	},
}

func init() {
	newCmd.Flags().StringVarP(&newOpts.output, "output", "o", "", "Persona file to write (default: stdout)")
	newCmd.Flags().StringVar(&newOpts.format, "format", "", "Persona file format: json or yaml (default from extension)")
	newCmd.Flags().StringVar(&newOpts.from, "from", "", "Persona file to use as a template")
	newCmd.Flags().StringVar(&newOpts.name, "name", "", "Persona name")

	fetchCmd.Flags().StringVarP(&fetchOpts.output, "output", "o", "", "Persona file to write (default: stdout)")
	fetchCmd.Flags().StringVar(&fetchOpts.format, "format", "", "Persona file format: json or yaml (default from extension)")

	addOutputFlags(listCmd, &listOpts.CommandConfig, "File to write the list to (default: stdout)")
	listCmd.Flags().StringVar(&listOpts.roleID, "role-id", "", "Only personas of this role")
}
