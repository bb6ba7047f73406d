package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"personakit/internal/ai"
	"personakit/internal/common"
	"personakit/internal/persona"
	"personakit/internal/types"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate [job-description-file]",
	Short: "Generate a persona from a job description",
	Long: `Generate a weighted persona for a role from a job description.

The job description is either a text file argument or a job description
registered on the server (--jd-id). Role and job description default to the
wizard session when one is active. Use --local to call the AI provider
directly instead of the server; it requires a job description file.

The written persona carries its baseline, the generated category weights the
recommended ranges are measured from.`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveFormat(cmd, &generateOpts.CommandConfig)
	},
	RunE: runGenerate,
}

var generateOpts struct {
	common.CommandConfig
	roleID           string
	roleName         string
	jobDescriptionID string
	local            bool
	refresh          bool
}

func init() {
	addOutputFlags(generateCmd, &generateOpts.CommandConfig, "Persona file to write (default: stdout)")
	generateCmd.Flags().StringVar(&generateOpts.roleID, "role-id", "", "Role identifier (default from session)")
	generateCmd.Flags().StringVar(&generateOpts.roleName, "role-name", "", "Role display name")
	generateCmd.Flags().StringVar(&generateOpts.jobDescriptionID, "jd-id", "", "Registered job description id (default from session)")
	generateCmd.Flags().BoolVar(&generateOpts.local, "local", false, "Generate in-process with the configured AI provider")
	generateCmd.Flags().BoolVar(&generateOpts.refresh, "refresh", false, "Bypass the server's generation cache")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	base := types.GeneratePersonaInput{
		RoleID:           generateOpts.roleID,
		RoleName:         generateOpts.roleName,
		JobDescriptionID: generateOpts.jobDescriptionID,
	}
	if h, ok := loadSession(cfg, logger); ok {
		if base.RoleID == "" {
			base.RoleID = h.RoleID
		}
		if base.RoleName == "" {
			base.RoleName = h.RoleName
		}
		if base.JobDescriptionID == "" && len(args) == 0 {
			base.JobDescriptionID = h.JobDescriptionID
		}
	}

	var source persona.Source
	var local *localSource
	if generateOpts.local {
		genCfg := cfg.GetGenerateConfig()
		service, err := ai.NewService(&genCfg, logger)
		if err != nil {
			return fmt.Errorf("failed to create AI service: %w", err)
		}
		defer func() {
			if err := service.Close(); err != nil {
				logger.Warn("Failed to close AI service", "error", err)
			}
		}()
		local = &localSource{service: service}
		source = local
	} else {
		source = newRemoteSource(newClient(cfg, logger), generateOpts.refresh)
	}

	createInput := func(contents []string) (types.GeneratePersonaInput, error) {
		input := base
		if len(contents) == 1 {
			input.JobDescription = contents[0]
			if input.JobDescriptionID == "" {
				input.JobDescriptionID = "file:" + filepath.Base(args[0])
			}
		}
		if strings.TrimSpace(input.RoleID) == "" {
			return input, fmt.Errorf("--role-id is required when no wizard session is active")
		}
		if input.JobDescriptionID == "" {
			return input, fmt.Errorf("a job description file or --jd-id is required")
		}
		if generateOpts.local && strings.TrimSpace(input.JobDescription) == "" {
			return input, fmt.Errorf("--local needs a job description file")
		}
		return input, nil
	}

	logDetails := func(input types.GeneratePersonaInput, cmdConfig common.CommandConfig) {
		logger.Info("Starting persona generation",
			"role_id", input.RoleID,
			"job_description_id", input.JobDescriptionID,
			"job_chars", len(input.JobDescription),
			"local", generateOpts.local,
			"output_format", cmdConfig.OutputFormat)
	}

	generateOperation := func(ctx context.Context, input types.GeneratePersonaInput) (persona.SaveRequest, *ai.TokenUsage, error) {
		editor, err := persona.Open(ctx, persona.FlowGenerateMode{Input: input}, source, nil, logger)
		if err != nil {
			return persona.SaveRequest{}, nil, err
		}
		doc := persona.SaveRequest{PersonaTree: editor.Tree(), Baseline: editor.Baseline()}
		if local != nil {
			return doc, local.usage, nil
		}
		return doc, nil, nil
	}

	err := common.RunAICommand(
		cmd.Context(),
		logger,
		generateOpts.CommandConfig,
		cfg.App.MaxFileSize,
		args,
		createInput,
		generateOperation,
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to generate persona: %w", err)
	}
	logger.Info("Persona generation completed successfully")
	return nil
}
