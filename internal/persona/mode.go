package persona

import (
	"context"
	"fmt"
	"strings"

	"personakit/internal/errors"
	"personakit/internal/types"
)

// Source produces persona trees for a session: fresh from a job description or previously saved
type Source interface {
	GeneratePersona(ctx context.Context, input types.GeneratePersonaInput) (types.PersonaTree, error)
	FetchPersona(ctx context.Context, id string) (types.PersonaTree, error)
}

// Mode selects how an editing session is initialised. It is one of
// CreateMode, FlowGenerateMode or EditMode.
type Mode interface {
	isMode()
	String() string
}

// CreateMode starts from Initial, or from an empty tree when Initial is nil
type CreateMode struct {
	Initial *types.PersonaTree
}

// FlowGenerateMode generates a persona from a registered job description
type FlowGenerateMode struct {
	Input types.GeneratePersonaInput
}

// EditMode loads a saved persona for update
type EditMode struct {
	PersonaID string
}

func (CreateMode) isMode()       {}
func (FlowGenerateMode) isMode() {}
func (EditMode) isMode()         {}

func (CreateMode) String() string { return "create" }
func (m FlowGenerateMode) String() string {
	return fmt.Sprintf("flow-generate(role=%s, jd=%s)", m.Input.RoleID, m.Input.JobDescriptionID)
}
func (m EditMode) String() string { return fmt.Sprintf("edit(%s)", m.PersonaID) }

// Open creates an editing session for mode. If generation or fetching fails the
// returned session holds no tree and the error is returned alongside it.
func Open(ctx context.Context, mode Mode, source Source, saver Saver, logger *errors.Logger) (*Editor, error) {
	editor := NewEditor(saver, logger)

	switch m := mode.(type) {
	case CreateMode:
		tree := types.PersonaTree{Categories: []types.Category{}}
		if m.Initial != nil {
			tree = *m.Initial
		}
		tree.ID = ""
		editor.Load(tree)
		return editor, nil

	case FlowGenerateMode:
		if err := editor.Regenerate(ctx, source, m.Input); err != nil {
			return editor, err
		}
		return editor, nil

	case EditMode:
		if strings.TrimSpace(m.PersonaID) == "" {
			return editor, errors.NewValidationError(errors.ErrCodeInvalidRequest, "persona id is required in edit mode", nil)
		}
		tree, err := source.FetchPersona(ctx, m.PersonaID)
		if err != nil {
			return editor, err
		}
		if tree.ID == "" {
			tree.ID = m.PersonaID
		}
		editor.Load(tree)
		return editor, nil

	default:
		return editor, errors.NewInternalError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unsupported session mode %T", mode), nil)
	}
}

// Regenerate asks source for a new persona and replaces both the tree and the baseline.
// On failure the session keeps whatever it held before.
func (e *Editor) Regenerate(ctx context.Context, source Source, input types.GeneratePersonaInput) error {
	if strings.TrimSpace(input.RoleID) == "" || strings.TrimSpace(input.JobDescriptionID) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"role_id and job_description_id are required to generate a persona", nil)
	}
	e.mu.Lock()
	busy := e.state == StateSaving
	e.mu.Unlock()
	if busy {
		return ErrSaveInProgress
	}

	tree, err := source.GeneratePersona(ctx, input)
	if err != nil {
		return errors.NewAIError(errors.ErrCodeGenerationFailed, "persona generation failed", err).
			WithContext("job_description_id", input.JobDescriptionID)
	}
	tree.ID = ""
	if tree.RoleID == "" {
		tree.RoleID = input.RoleID
	}
	if tree.RoleName == "" {
		tree.RoleName = input.RoleName
	}
	if tree.JobDescriptionID == "" {
		tree.JobDescriptionID = input.JobDescriptionID
	}
	return e.Replace(tree)
}
