package auth

import (
	"github.com/goliatone/go-router"
)

// RequestAuthState tracks where a request sits in the authentication and
// authorization pipeline.
type RequestAuthState string

const (
	// StateUnauthenticated is the initial state of every request.
	StateUnauthenticated RequestAuthState = "unauthenticated"
	// StateValidating means a token was presented and is being checked.
	StateValidating RequestAuthState = "validating"
	// StateAuthenticated means the token validated and a principal is known.
	StateAuthenticated RequestAuthState = "authenticated"
	// StateRejected is terminal: no token or an invalid one. Maps to 401.
	StateRejected RequestAuthState = "rejected"
	// StateAuthorized is terminal: the principal passed every gate.
	StateAuthorized RequestAuthState = "authorized"
	// StateForbidden is terminal: authenticated but missing a required role.
	// Maps to 403, never 401.
	StateForbidden RequestAuthState = "forbidden"
)

var requestAuthTransitions = map[RequestAuthState]map[RequestAuthState]struct{}{
	StateUnauthenticated: {
		StateValidating: {},
		StateRejected:   {},
	},
	StateValidating: {
		StateAuthenticated: {},
		StateRejected:      {},
	},
	StateAuthenticated: {
		StateAuthorized: {},
		StateForbidden:  {},
	},
}

// CanTransitionAuthState reports whether the pipeline allows moving between
// the two states. Terminal states have no exits.
func CanTransitionAuthState(from, to RequestAuthState) bool {
	if allowed, ok := requestAuthTransitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// IsTerminalAuthState reports whether the request pipeline stops at state.
func IsTerminalAuthState(state RequestAuthState) bool {
	switch state {
	case StateRejected, StateAuthorized, StateForbidden:
		return true
	default:
		return false
	}
}

// RequestAuthMachine walks a single request through the auth pipeline. It is
// not safe for concurrent use; create one per request.
type RequestAuthMachine struct {
	state     RequestAuthState
	principal *AuthenticatedPrincipal
}

// NewRequestAuthMachine starts a machine in the unauthenticated state.
func NewRequestAuthMachine() *RequestAuthMachine {
	return &RequestAuthMachine{state: StateUnauthenticated}
}

// State returns the current pipeline state.
func (g *RequestAuthMachine) State() RequestAuthState {
	return g.state
}

// Principal returns the principal once the machine reached authenticated.
func (g *RequestAuthMachine) Principal() (AuthenticatedPrincipal, bool) {
	if g.principal == nil {
		return AuthenticatedPrincipal{}, false
	}
	return *g.principal, true
}

// BeginValidation marks that a token was presented.
func (g *RequestAuthMachine) BeginValidation() error {
	return g.transition(StateValidating)
}

// Authenticate records the validated principal.
func (g *RequestAuthMachine) Authenticate(principal AuthenticatedPrincipal) error {
	if err := g.transition(StateAuthenticated); err != nil {
		return err
	}
	g.principal = &principal
	return nil
}

// Reject terminates the pipeline with the not-authenticated outcome. Legal
// from both the initial state (no token at all) and validation (bad token).
func (g *RequestAuthMachine) Reject() error {
	if err := g.transition(StateRejected); err != nil {
		return err
	}
	return ErrNotAuthenticated
}

// Authorize runs the role gate against the authenticated principal's token
// snapshot. A request that never authenticated cannot reach forbidden; the
// distinction between 401 and 403 is exactly the distinction between these
// two exits.
func (g *RequestAuthMachine) Authorize(requiredRoles ...string) error {
	if g.state != StateAuthenticated || g.principal == nil {
		g.state = StateRejected
		return ErrNotAuthenticated
	}

	for _, role := range requiredRoles {
		if !g.principal.HasRole(role) {
			g.state = StateForbidden
			return ErrInsufficientRole.Clone().
				WithMetadata(map[string]any{"required_role": role})
		}
	}

	g.state = StateAuthorized
	return nil
}

func (g *RequestAuthMachine) transition(to RequestAuthState) error {
	if !CanTransitionAuthState(g.state, to) {
		return ErrNotAuthenticated.Clone().
			WithMetadata(map[string]any{
				"from": string(g.state),
				"to":   string(to),
			})
	}
	g.state = to
	return nil
}

// RequireAuthenticated gates a route on a validated token. The JWT middleware
// must run first; this only checks that it left claims on the context.
func RequireAuthenticated(contextKey string) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			machine := NewRequestAuthMachine()

			claims, ok := GetRouterClaims(c, contextKey)
			if !ok {
				return machine.Reject()
			}

			if err := machine.BeginValidation(); err != nil {
				return err
			}

			principal, ok := principalFromClaims(claims)
			if !ok {
				return machine.Reject()
			}

			if err := machine.Authenticate(principal); err != nil {
				return err
			}

			c.SetContext(WithPrincipalContext(c.Context(), principal))
			return hf(c)
		}
	}
}

// RequireRole gates a route on the named role being present in the token's
// snapshot. Roles are flat: requiring User admits only accounts that hold
// User explicitly, Admin or not.
func RequireRole(contextKey string, roles ...string) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			machine := NewRequestAuthMachine()

			claims, ok := GetRouterClaims(c, contextKey)
			if !ok {
				return machine.Reject()
			}

			if err := machine.BeginValidation(); err != nil {
				return err
			}

			principal, ok := principalFromClaims(claims)
			if !ok {
				return machine.Reject()
			}

			if err := machine.Authenticate(principal); err != nil {
				return err
			}

			if err := machine.Authorize(roles...); err != nil {
				return err
			}

			c.SetContext(WithPrincipalContext(c.Context(), principal))
			return hf(c)
		}
	}
}
