package cli

import (
	"fmt"

	"personakit/internal/config"
	"personakit/internal/errors"
	"personakit/internal/persona"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the role → job description → persona wizard session",
	Long: `The wizard session records which role and job description the next
persona belongs to. 'jd add' and 'generate' read and advance it, so the
steps can run as separate commands.`,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current wizard session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		h, err := persona.LoadHandoff(cfg.App.SessionFile)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(h)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a wizard session for a role",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		logger := getLoggerFromContext(cmd.Context())

		h, err := persona.Handoff{
			RoleID:   sessionFlags.roleID,
			RoleName: sessionFlags.roleName,
		}.Advance(persona.StepJobDescription)
		if err != nil {
			return err
		}
		if err := persona.SaveHandoff(cfg.App.SessionFile, h); err != nil {
			return err
		}
		logger.Info("Wizard session started", "role_id", h.RoleID, "file", cfg.App.SessionFile)
		fmt.Fprintf(cmd.OutOrStdout(), "Session started for role %s; next: personakit jd add <file>\n", h.RoleID)
		return nil
	},
}

var sessionSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update fields of the current wizard session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		h, err := persona.LoadHandoff(cfg.App.SessionFile)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("role-id") {
			h.RoleID = sessionFlags.roleID
		}
		if flags.Changed("role-name") {
			h.RoleName = sessionFlags.roleName
		}
		if flags.Changed("jd-id") {
			h.JobDescriptionID = sessionFlags.jobDescriptionID
		}
		if flags.Changed("persona-id") {
			h.PersonaID = sessionFlags.personaID
		}

		next := persona.StepJobDescription
		if h.JobDescriptionID != "" {
			next = persona.StepPersona
		}
		if h, err = h.Advance(next); err != nil {
			return err
		}
		return persona.SaveHandoff(cfg.App.SessionFile, h)
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the wizard session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		return persona.ClearHandoff(cfg.App.SessionFile)
	},
}

var sessionFlags struct {
	roleID           string
	roleName         string
	jobDescriptionID string
	personaID        string
}

func init() {
	sessionStartCmd.Flags().StringVar(&sessionFlags.roleID, "role-id", "", "Role identifier (required)")
	sessionStartCmd.Flags().StringVar(&sessionFlags.roleName, "role-name", "", "Role display name")
	_ = sessionStartCmd.MarkFlagRequired("role-id")

	sessionSetCmd.Flags().StringVar(&sessionFlags.roleID, "role-id", "", "Role identifier")
	sessionSetCmd.Flags().StringVar(&sessionFlags.roleName, "role-name", "", "Role display name")
	sessionSetCmd.Flags().StringVar(&sessionFlags.jobDescriptionID, "jd-id", "", "Job description identifier")
	sessionSetCmd.Flags().StringVar(&sessionFlags.personaID, "persona-id", "", "Saved persona to resume in 'fetch'")

	sessionCmd.AddCommand(sessionShowCmd, sessionStartCmd, sessionSetCmd, sessionClearCmd)
}

// loadSession returns the wizard session if one exists. A malformed session is
// reported and ignored so explicit flags still work.
func loadSession(cfg *config.Config, logger *errors.Logger) (persona.Handoff, bool) {
	h, err := persona.LoadHandoff(cfg.App.SessionFile)
	if err != nil {
		if !errors.HasCode(err, errors.ErrCodeFileNotFound) {
			logger.Warn("Ignoring unusable wizard session", "file", cfg.App.SessionFile, "error", err)
		}
		return persona.Handoff{}, false
	}
	return h, true
}
