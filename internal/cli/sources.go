package cli

import (
	"context"

	"personakit/internal/ai"
	"personakit/internal/client"
	"personakit/internal/errors"
	"personakit/internal/types"
)

// remoteSource generates and fetches personas through the server. Baselines of
// fetched personas are kept so sessions resume against the stored ranges.
type remoteSource struct {
	client    *client.Client
	refresh   bool
	baselines map[string]types.Baseline
}

func newRemoteSource(c *client.Client, refresh bool) *remoteSource {
	return &remoteSource{client: c, refresh: refresh, baselines: map[string]types.Baseline{}}
}

func (s *remoteSource) GeneratePersona(ctx context.Context, input types.GeneratePersonaInput) (types.PersonaTree, error) {
	return s.client.Generate(ctx, client.GenerateRequest{GeneratePersonaInput: input, Refresh: s.refresh})
}

func (s *remoteSource) FetchPersona(ctx context.Context, id string) (types.PersonaTree, error) {
	tree, baseline, err := s.client.FetchPersonaWithBaseline(ctx, id)
	if err != nil {
		return types.PersonaTree{}, err
	}
	s.baselines[id] = baseline
	return tree, nil
}

// localSource calls the AI provider in-process and remembers the token usage of the last call
type localSource struct {
	service *ai.Service
	usage   *ai.TokenUsage
}

func (s *localSource) GeneratePersona(ctx context.Context, input types.GeneratePersonaInput) (types.PersonaTree, error) {
	tree, usage, err := s.service.GeneratePersona(ctx, input)
	if err != nil {
		return types.PersonaTree{}, err
	}
	s.usage = usage
	return tree, nil
}

func (s *localSource) FetchPersona(context.Context, string) (types.PersonaTree, error) {
	return types.PersonaTree{}, errors.NewConfigError(errors.ErrCodeInvalidRequest,
		"saved personas are only available from a server; run without --local", nil)
}
