package goAuthClient

import "context"

type stateContextKey struct{}

// WithState attaches a session snapshot to ctx. The route guard in the
// middleware package does this for every request it lets through.
func WithState(ctx context.Context, s State) context.Context {
	return context.WithValue(ctx, stateContextKey{}, s)
}

// StateFromContext returns the snapshot attached by WithState.
func StateFromContext(ctx context.Context) (State, bool) {
	if ctx == nil {
		return State{}, false
	}
	s, ok := ctx.Value(stateContextKey{}).(State)
	return s, ok
}
