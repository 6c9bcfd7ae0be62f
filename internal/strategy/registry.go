package strategy

import (
	"errors"
	"fmt"
)

// ErrUnknownStrategy is returned when a strategy id is outside the closed
// set of seven wire formats. Resolution never falls back to a default, since
// that would silently change the review protocol.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Registry maps strategy ids to implementations. The set is closed and
// hand-maintained; this is deliberately not an open-ended plugin loader.
type Registry struct {
	byName map[string]Strategy
	order  []string
}

// NewRegistry builds the registry over all seven strategies.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Strategy)}

	for _, s := range []Strategy{
		NewJSONLines(),
		NewLineNumbers(),
		NewOpenAIResponses(),
		NewInlinePhrase(),
		NewInlineBrackets(),
		NewInlineJSON(),
		NewInlineFiles(),
	} {
		r.byName[s.Name()] = s
		r.order = append(r.order, s.Name())
	}

	return r
}

// Resolve returns the strategy registered under id.
func (r *Registry) Resolve(id string) (Strategy, error) {
	s, ok := r.byName[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, id)
	}
	return s, nil
}

// All returns every strategy in registration order, matching
// config.StrategyIDs. Used by the comparison harness for exhaustive fan-out.
func (r *Registry) All() []Strategy {
	out := make([]Strategy, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}
