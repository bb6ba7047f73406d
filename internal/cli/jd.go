package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"personakit/internal/common"
	"personakit/internal/persona"
	"personakit/internal/types"

	"github.com/spf13/cobra"
)

var jobDescriptionCmd = &cobra.Command{
	Use:     "jd",
	Aliases: []string{"job-description"},
	Short:   "Register and list job descriptions",
}

var jdAddCmd = &cobra.Command{
	Use:   "add [job-description-file]",
	Short: "Register a job description on the server",
	Long: `Upload a job description for a role. When a wizard session is active the
role defaults to the session's and the session advances to the persona step.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		logger := getLoggerFromContext(cmd.Context())

		contents, err := common.NewFileProcessor(logger, cfg.App.MaxFileSize).ValidateAndReadFiles(args[0])
		if err != nil {
			return err
		}

		jd := types.JobDescription{
			RoleID:   jdOpts.roleID,
			RoleName: jdOpts.roleName,
			Title:    jdOpts.title,
			Content:  contents[0],
		}
		session, hasSession := loadSession(cfg, logger)
		if hasSession {
			if jd.RoleID == "" {
				jd.RoleID = session.RoleID
			}
			if jd.RoleName == "" {
				jd.RoleName = session.RoleName
			}
		}
		if strings.TrimSpace(jd.RoleID) == "" {
			return fmt.Errorf("--role-id is required when no wizard session is active")
		}
		if jd.Title == "" {
			jd.Title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}

		created, err := newClient(cfg, logger).CreateJobDescription(cmd.Context(), jd)
		if err != nil {
			return fmt.Errorf("failed to register job description: %w", err)
		}
		logger.Info("Job description registered", "id", created.ID, "role_id", created.RoleID)

		if hasSession && session.RoleID == created.RoleID {
			session.JobDescriptionID = created.ID
			next, err := session.Advance(persona.StepPersona)
			if err != nil {
				return err
			}
			if err := persona.SaveHandoff(cfg.App.SessionFile, next); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered job description %s; next: personakit generate\n", created.ID)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered job description %s\n", created.ID)
		return nil
	},
}

var jdListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered job descriptions",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if jdListOpts.OutputFormat == "" {
			jdListOpts.OutputFormat = "text"
		}
		return resolveFormat(cmd, &jdListOpts.CommandConfig)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		logger := getLoggerFromContext(cmd.Context())

		jds, err := newClient(cfg, logger).ListJobDescriptions(cmd.Context(), jdListOpts.roleID)
		if err != nil {
			return fmt.Errorf("failed to list job descriptions: %w", err)
		}
		return common.NewOutputHandler(logger).HandleOutput(jds, jdListOpts.CommandConfig)
	},
}

var jdOpts struct {
	roleID   string
	roleName string
	title    string
}

var jdListOpts struct {
	common.CommandConfig
	roleID string
}

func init() {
	jdAddCmd.Flags().StringVar(&jdOpts.roleID, "role-id", "", "Role identifier (default from session)")
	jdAddCmd.Flags().StringVar(&jdOpts.roleName, "role-name", "", "Role display name (default from session)")
	jdAddCmd.Flags().StringVar(&jdOpts.title, "title", "", "Title (default: file name)")

	addOutputFlags(jdListCmd, &jdListOpts.CommandConfig, "File to write the list to (default: stdout)")
	jdListCmd.Flags().StringVar(&jdListOpts.roleID, "role-id", "", "Only job descriptions of this role")

	jobDescriptionCmd.AddCommand(jdAddCmd, jdListCmd)
}
