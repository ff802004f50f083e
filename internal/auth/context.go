package auth

import "context"

type contextKey string

const contextState contextKey = "authState"

// WithState stores the request's session state in ctx.
func WithState(ctx context.Context, s State) context.Context {
	return context.WithValue(ctx, contextState, s)
}

// FromContext returns the session state stored by WithState. A context without
// one is still Loading.
func FromContext(ctx context.Context) State {
	s, ok := ctx.Value(contextState).(State)
	if !ok {
		return State{Phase: Loading}
	}
	return s
}
