package persona

import (
	"context"
	stderrors "errors"
	"maps"
	"sync"

	"personakit/internal/errors"
	"personakit/internal/types"
)

// State is the position of an editing session in the save flow
type State int

const (
	StateEditing State = iota
	StateRangeWarning
	StateSaving
	StateSaved
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateRangeWarning:
		return "range_warning"
	case StateSaving:
		return "saving"
	case StateSaved:
		return "saved"
	default:
		return "unknown"
	}
}

// Outcome is the result of a save attempt
type Outcome int

const (
	// OutcomeBlocked means a hard invariant failed and nothing was sent
	OutcomeBlocked Outcome = iota
	// OutcomeRangeWarning means the user must choose GoBack or SaveAnyway
	OutcomeRangeWarning
	// OutcomeSaved means persistence succeeded and the session is closed
	OutcomeSaved
	// OutcomeFailed means persistence failed and the session is editable again
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBlocked:
		return "blocked"
	case OutcomeRangeWarning:
		return "range_warning"
	case OutcomeSaved:
		return "saved"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	ErrNoTree                  = stderrors.New("no persona loaded")
	ErrSaveInProgress          = stderrors.New("save in progress, edits are frozen")
	ErrSessionClosed           = stderrors.New("persona already saved, session closed")
	ErrNotAwaitingConfirmation = stderrors.New("no range warning awaiting confirmation")
	ErrAwaitingConfirmation    = stderrors.New("range warning awaiting go back or save anyway")
)

// Saver persists a persona tree. UpdatePersona is used once the tree has an ID.
type Saver interface {
	CreatePersona(ctx context.Context, req SaveRequest) (types.PersonaTree, error)
	UpdatePersona(ctx context.Context, id string, req SaveRequest) (types.PersonaTree, error)
}

// Editor owns one persona tree and its baseline for the duration of an editing session
type Editor struct {
	mu       sync.Mutex
	saver    Saver
	logger   *errors.Logger
	tree     types.PersonaTree
	baseline types.Baseline
	warnings map[int]string
	loaded   bool
	state    State
	lastErr  error
}

// NewEditor creates an empty session persisting through saver
func NewEditor(saver Saver, logger *errors.Logger) *Editor {
	return &Editor{
		saver:    saver,
		logger:   logger,
		warnings: map[int]string{},
	}
}

// Load installs tree. The baseline is captured on the first load only.
func (e *Editor) Load(tree types.PersonaTree) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		e.baseline = CaptureBaseline(tree)
		e.loaded = true
	}
	e.install(tree)
}

// LoadWithBaseline installs tree with an explicit baseline, as when resuming a session
func (e *Editor) LoadWithBaseline(tree types.PersonaTree, baseline types.Baseline) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.baseline = maps.Clone(baseline)
	if e.baseline == nil {
		e.baseline = types.Baseline{}
	}
	e.loaded = true
	e.install(tree)
}

// Replace swaps in a freshly generated tree together with a new baseline.
// It fails with ErrSaveInProgress while a save is running.
func (e *Editor) Replace(tree types.PersonaTree) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateSaving {
		return ErrSaveInProgress
	}
	e.baseline = CaptureBaseline(tree)
	e.loaded = true
	e.install(tree)
	return nil
}

func (e *Editor) install(tree types.PersonaTree) {
	e.tree = Clone(tree)
	e.warnings = RangeWarnings(e.tree, e.baseline)
	e.state = StateEditing
	e.lastErr = nil
}

// Loaded reports whether the session holds a tree
func (e *Editor) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// Tree returns a copy of the current tree
func (e *Editor) Tree() types.PersonaTree {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Clone(e.tree)
}

// Baseline returns a copy of the captured baseline
func (e *Editor) Baseline() types.Baseline {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.baseline)
}

// State returns the current save-flow state
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastError returns the error of the most recent failed save, if any
func (e *Editor) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Warnings returns the range warnings keyed by category position
func (e *Editor) Warnings() map[int]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.warnings)
}

// Report validates the current tree against the baseline
func (e *Editor) Report() types.ValidationReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Validate(e.tree, e.baseline)
}

// Apply runs a pure edit against the current tree and refreshes range warnings
func (e *Editor) Apply(edit func(types.PersonaTree) types.PersonaTree) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.editable(); err != nil {
		return err
	}
	e.tree = edit(e.tree)
	e.warnings = RangeWarnings(e.tree, e.baseline)
	return nil
}

// SetCategoryWeight updates a category weight and returns its range check
func (e *Editor) SetCategoryWeight(catPos int, weight float64) (types.RangeCheck, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.editable(); err != nil {
		return types.RangeCheck{}, err
	}
	e.tree = UpdateCategoryWeight(e.tree, catPos, weight)
	e.warnings = RangeWarnings(e.tree, e.baseline)
	idx := categoryIndex(e.tree, catPos)
	if idx < 0 {
		return types.RangeCheck{Valid: true}, nil
	}
	return ValidateCategoryRange(e.tree, e.baseline, catPos, e.tree.Categories[idx].WeightPercentage), nil
}

func (e *Editor) editable() error {
	if !e.loaded {
		return ErrNoTree
	}
	switch e.state {
	case StateSaving:
		return ErrSaveInProgress
	case StateSaved:
		return ErrSessionClosed
	case StateRangeWarning:
		return ErrAwaitingConfirmation
	}
	return nil
}

// Submit starts the save flow. Blocked submissions return a validation error and
// never reach the saver; range violations move the session to StateRangeWarning.
func (e *Editor) Submit(ctx context.Context) (Outcome, error) {
	e.mu.Lock()
	if err := e.editable(); err != nil {
		e.mu.Unlock()
		return OutcomeBlocked, err
	}
	if err := BlockedError(e.tree); err != nil {
		e.mu.Unlock()
		return OutcomeBlocked, err
	}
	if len(e.warnings) > 0 {
		e.state = StateRangeWarning
		e.mu.Unlock()
		return OutcomeRangeWarning, nil
	}
	return e.persistLocked(ctx, false)
}

// GoBack dismisses a range warning and returns to editing
func (e *Editor) GoBack() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRangeWarning {
		return ErrNotAwaitingConfirmation
	}
	e.state = StateEditing
	return nil
}

// SaveAnyway persists despite range violations. Weights are sent as entered.
func (e *Editor) SaveAnyway(ctx context.Context) (Outcome, error) {
	e.mu.Lock()
	if e.state != StateRangeWarning {
		e.mu.Unlock()
		return OutcomeBlocked, ErrNotAwaitingConfirmation
	}
	return e.persistLocked(ctx, true)
}

// persistLocked must be called with e.mu held; it releases the lock while the saver runs.
func (e *Editor) persistLocked(ctx context.Context, saveAnyway bool) (Outcome, error) {
	e.state = StateSaving
	req := SaveRequest{
		PersonaTree: SavePayload(e.tree),
		Baseline:    maps.Clone(e.baseline),
		SaveAnyway:  saveAnyway,
	}
	e.mu.Unlock()

	var saved types.PersonaTree
	var err error
	if req.ID != "" {
		saved, err = e.saver.UpdatePersona(ctx, req.ID, req)
	} else {
		saved, err = e.saver.CreatePersona(ctx, req)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.state = StateEditing
		e.lastErr = err
		if e.logger != nil {
			e.logger.LogError(err, "Persona save failed", "persona_id", req.ID, "save_anyway", saveAnyway)
		}
		return OutcomeFailed, err
	}

	if saved.ID == "" {
		saved.ID = req.ID
	}
	e.tree = saved
	e.state = StateSaved
	e.lastErr = nil
	if e.logger != nil {
		e.logger.Info("Persona saved",
			"persona_id", saved.ID,
			"save_anyway", saveAnyway,
			"range_violations", len(e.warnings))
	}
	return OutcomeSaved, nil
}
