package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"personakit/internal/errors"
	"personakit/internal/types"

	"gopkg.in/yaml.v3"
)

// Step is a stage of the role → job description → persona wizard
type Step string

const (
	StepRole           Step = "role"
	StepJobDescription Step = "job_description"
	StepPersona        Step = "persona"
)

// Handoff carries wizard context between steps in place of ambient key/value storage
type Handoff struct {
	Step             Step      `yaml:"step"`
	RoleID           string    `yaml:"role_id,omitempty"`
	RoleName         string    `yaml:"role_name,omitempty"`
	JobDescriptionID string    `yaml:"job_description_id,omitempty"`
	PersonaID        string    `yaml:"persona_id,omitempty"`
	UpdatedAt        time.Time `yaml:"updated_at"`
}

// Validate checks that every field the current step depends on is present
func (h Handoff) Validate() error {
	var missing []string
	switch h.Step {
	case StepRole:
	case StepJobDescription:
		if strings.TrimSpace(h.RoleID) == "" {
			missing = append(missing, "role_id")
		}
	case StepPersona:
		if strings.TrimSpace(h.RoleID) == "" {
			missing = append(missing, "role_id")
		}
		if strings.TrimSpace(h.JobDescriptionID) == "" {
			missing = append(missing, "job_description_id")
		}
	default:
		return errors.NewValidationError(errors.ErrCodeInvalidSession,
			fmt.Sprintf("unknown wizard step %q", h.Step), nil)
	}
	if len(missing) > 0 {
		return errors.NewValidationError(errors.ErrCodeInvalidSession,
			fmt.Sprintf("wizard step %s requires %s", h.Step, strings.Join(missing, ", ")), nil)
	}
	return nil
}

// Advance moves the hand-off to next after validating the new state
func (h Handoff) Advance(next Step) (Handoff, error) {
	h.Step = next
	h.UpdatedAt = time.Now().UTC()
	if err := h.Validate(); err != nil {
		return Handoff{}, err
	}
	return h, nil
}

// Mode returns the session mode the hand-off leads to
func (h Handoff) Mode() (Mode, error) {
	if h.PersonaID != "" {
		return EditMode{PersonaID: h.PersonaID}, nil
	}
	if h.Step != StepPersona {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidSession,
			fmt.Sprintf("wizard is at step %s, persona generation needs step %s", h.Step, StepPersona), nil)
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return FlowGenerateMode{Input: types.GeneratePersonaInput{
		RoleID:           h.RoleID,
		RoleName:         h.RoleName,
		JobDescriptionID: h.JobDescriptionID,
	}}, nil
}

// LoadHandoff reads and validates a hand-off file
func LoadHandoff(path string) (Handoff, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Handoff{}, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("no wizard session at %s", path), err)
		}
		return Handoff{}, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read wizard session", err)
	}
	var h Handoff
	if err := yaml.Unmarshal(data, &h); err != nil {
		return Handoff{}, errors.NewValidationError(errors.ErrCodeInvalidSession, "wizard session file is malformed", err)
	}
	if err := h.Validate(); err != nil {
		return Handoff{}, err
	}
	return h, nil
}

// SaveHandoff validates h and writes it to path
func SaveHandoff(path string, h Handoff) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if h.UpdatedAt.IsZero() {
		h.UpdatedAt = time.Now().UTC()
	}
	data, err := yaml.Marshal(h)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInvalidSession, "failed to encode wizard session", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to create session directory", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to write wizard session", err)
	}
	return nil
}

// ClearHandoff removes the hand-off file; a missing file is not an error
func ClearHandoff(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to clear wizard session", err)
	}
	return nil
}
