package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"personakit/internal/config"
	"personakit/internal/errors"
	"personakit/internal/persona"
	"personakit/internal/types"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSaver struct {
	requests []persona.SaveRequest
	err      error
}

func (s *recordingSaver) CreatePersona(_ context.Context, req persona.SaveRequest) (types.PersonaTree, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return types.PersonaTree{}, s.err
	}
	saved := req.PersonaTree
	saved.ID = "p-1"
	return saved, nil
}

func (s *recordingSaver) UpdatePersona(_ context.Context, id string, req persona.SaveRequest) (types.PersonaTree, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return types.PersonaTree{}, s.err
	}
	return req.PersonaTree, nil
}

// stubConfirm replaces the interactive prompt for the duration of a test
func stubConfirm(t *testing.T, answer bool, err error) *int {
	t.Helper()
	calls := 0
	previous := confirmRangeWarning
	confirmRangeWarning = func(*cobra.Command, map[int]string) (bool, error) {
		calls++
		return answer, err
	}
	t.Cleanup(func() { confirmRangeWarning = previous })
	return &calls
}

func editorWithSaver(t *testing.T, saver persona.Saver, weights ...float64) *persona.Editor {
	t.Helper()
	editor := persona.NewEditor(saver, nil)
	editor.Load(samplePersona())
	for i, w := range weights {
		_, err := editor.SetCategoryWeight(i+1, w)
		require.NoError(t, err)
	}
	return editor
}

func TestSubmitPersonaInRange(t *testing.T) {
	saver := &recordingSaver{}
	calls := stubConfirm(t, false, nil)
	editor := editorWithSaver(t, saver, 42, 58)

	require.NoError(t, submitPersona(context.Background(), &cobra.Command{}, editor, false))
	assert.Equal(t, 0, *calls)
	require.Len(t, saver.requests, 1)
	assert.False(t, saver.requests[0].SaveAnyway)
	assert.Equal(t, types.Baseline{1: 40, 2: 60}, saver.requests[0].Baseline)
	assert.Equal(t, "p-1", editor.Tree().ID)
	assert.Equal(t, persona.StateSaved, editor.State())
}

func TestSubmitPersonaSaveAnywayFlag(t *testing.T) {
	saver := &recordingSaver{}
	calls := stubConfirm(t, false, nil)
	editor := editorWithSaver(t, saver, 50, 50)

	require.NoError(t, submitPersona(context.Background(), &cobra.Command{}, editor, true))
	assert.Equal(t, 0, *calls)
	require.Len(t, saver.requests, 1)
	assert.True(t, saver.requests[0].SaveAnyway)
}

func TestSubmitPersonaConfirmed(t *testing.T) {
	saver := &recordingSaver{}
	calls := stubConfirm(t, true, nil)
	editor := editorWithSaver(t, saver, 50, 50)

	require.NoError(t, submitPersona(context.Background(), &cobra.Command{}, editor, false))
	assert.Equal(t, 1, *calls)
	require.Len(t, saver.requests, 1)
	assert.True(t, saver.requests[0].SaveAnyway)
}

func TestSubmitPersonaGoBack(t *testing.T) {
	saver := &recordingSaver{}
	stubConfirm(t, false, nil)
	editor := editorWithSaver(t, saver, 50, 50)

	err := submitPersona(context.Background(), &cobra.Command{}, editor, false)
	assert.ErrorIs(t, err, ErrSaveCancelled)
	assert.Empty(t, saver.requests)
	assert.Equal(t, persona.StateEditing, editor.State())
}

func TestSubmitPersonaPromptFailure(t *testing.T) {
	saver := &recordingSaver{}
	stubConfirm(t, false, stderrors.New("no terminal"))
	editor := editorWithSaver(t, saver, 50, 50)

	err := submitPersona(context.Background(), &cobra.Command{}, editor, false)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
	assert.Empty(t, saver.requests)
	assert.Equal(t, persona.StateEditing, editor.State())
}

func TestSubmitPersonaBlocked(t *testing.T) {
	saver := &recordingSaver{}
	calls := stubConfirm(t, true, nil)
	editor := editorWithSaver(t, saver, 40, 50)

	err := submitPersona(context.Background(), &cobra.Command{}, editor, false)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeWeightTotalInvalid))
	assert.Equal(t, 0, *calls)
	assert.Empty(t, saver.requests)
}

func TestSubmitPersonaSaverFailure(t *testing.T) {
	saver := &recordingSaver{err: stderrors.New("HTTP 500: Internal Server Error")}
	stubConfirm(t, false, nil)
	editor := editorWithSaver(t, saver)

	err := submitPersona(context.Background(), &cobra.Command{}, editor, false)
	assert.EqualError(t, err, "HTTP 500: Internal Server Error")
	assert.Equal(t, persona.StateEditing, editor.State())
}

func TestPrintWarningsSorted(t *testing.T) {
	var buf bytes.Buffer
	printWarnings(&buf, map[int]string{3: "third", 1: "first"})
	assert.Equal(t, "  ! category 1: first\n  ! category 3: third\n", buf.String())
}

func TestApplyServeFlags(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Host = "localhost"
	cfg.Server.Port = "8080"

	require.NoError(t, serveCmd.Flags().Set("port", "9090"))
	require.NoError(t, serveCmd.Flags().Set("tls-mode", "server"))
	applyServeFlags(serveCmd, cfg)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "server", cfg.Server.TLS.Mode)
}
