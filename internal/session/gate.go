// Package session tracks which surface of the portal a client should be on:
// the first-run admin bootstrap, the login screen, the password recovery
// flow, or the portal itself. Clients subscribe to state changes instead of
// polling.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type State int

const (
	// StateUnauthenticated shows the login screen.
	StateUnauthenticated State = iota
	// StatePendingBootstrap means no administrator exists yet; the portal
	// offers the one-time admin registration instead of login.
	StatePendingBootstrap
	// StateAuthenticated means a valid session and loaded profile.
	StateAuthenticated
	// StatePasswordRecovery holds the client on the reset form until the
	// flow completes or is abandoned.
	StatePasswordRecovery
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StatePendingBootstrap:
		return "pending_bootstrap"
	case StateAuthenticated:
		return "authenticated"
	case StatePasswordRecovery:
		return "password_recovery"
	default:
		return "unknown"
	}
}

// ErrUnauthenticated is returned by a Prober when no session is active.
var ErrUnauthenticated = errors.New("no active session")

// Profile is the slice of the account the gate needs for routing decisions.
type Profile struct {
	ID       uuid.UUID
	Name     string
	Email    string
	Role     string
	CenterID *int64
}

// Prober answers the two questions the gate asks the backend: is there an
// admin at all, and who am I.
type Prober interface {
	AdminRegistered(ctx context.Context) (bool, error)
	CurrentProfile(ctx context.Context) (*Profile, error)
}

// Event is delivered to subscribers on every state transition.
type Event struct {
	State   State
	Profile *Profile
}

type Gate struct {
	prober Prober

	mu      sync.RWMutex
	state   State
	profile *Profile
	subs    map[int]chan Event
	nextSub int
}

func NewGate(prober Prober) *Gate {
	return &Gate{
		prober: prober,
		state:  StateUnauthenticated,
		subs:   make(map[int]chan Event),
	}
}

func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Profile returns the loaded profile, nil unless authenticated.
func (g *Gate) Profile() *Profile {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.profile
}

// Refresh re-derives the state from the backend. A reachable session wins;
// otherwise the admin probe decides between login and bootstrap. Probe
// failures fail closed to the login screen rather than guessing.
func (g *Gate) Refresh(ctx context.Context) error {
	// A client parked on the recovery form stays there across refreshes.
	if g.State() == StatePasswordRecovery {
		return nil
	}

	p, err := g.prober.CurrentProfile(ctx)
	switch {
	case err == nil:
		g.transition(StateAuthenticated, p)
		return nil
	case !errors.Is(err, ErrUnauthenticated):
		log.Warn().Err(err).Msg("session probe failed, treating as signed out")
		g.transition(StateUnauthenticated, nil)
		return err
	}

	registered, err := g.prober.AdminRegistered(ctx)
	if err != nil {
		g.transition(StateUnauthenticated, nil)
		return err
	}
	if registered {
		g.transition(StateUnauthenticated, nil)
	} else {
		g.transition(StatePendingBootstrap, nil)
	}
	return nil
}

// SignIn records a successful login or signup.
func (g *Gate) SignIn(p *Profile) {
	g.transition(StateAuthenticated, p)
}

// SignOut drops the session and returns to the login screen.
func (g *Gate) SignOut() {
	g.transition(StateUnauthenticated, nil)
}

// BeginRecovery parks the client on the password reset form. Only sensible
// from a signed-out state.
func (g *Gate) BeginRecovery() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateAuthenticated {
		return
	}
	g.transitionLocked(StatePasswordRecovery, nil)
}

// EndRecovery leaves the reset flow, back to login.
func (g *Gate) EndRecovery() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StatePasswordRecovery {
		return
	}
	g.transitionLocked(StateUnauthenticated, nil)
}

// Subscribe registers a listener for state transitions. The returned cancel
// function must be called to release the channel.
func (g *Gate) Subscribe() (<-chan Event, func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextSub
	g.nextSub++
	ch := make(chan Event, 8)
	g.subs[id] = ch
	return ch, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if ch, ok := g.subs[id]; ok {
			delete(g.subs, id)
			close(ch)
		}
	}
}

func (g *Gate) transition(state State, p *Profile) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transitionLocked(state, p)
}

// transitionLocked broadcasts while holding g.mu. That keeps sends and the
// close() in a subscriber's cancel func serialized: a channel is either still
// in the map and open, or already removed and closed, never both.
func (g *Gate) transitionLocked(state State, p *Profile) {
	if g.state == state && sameProfile(g.profile, p) {
		return
	}
	g.state = state
	g.profile = p
	ev := Event{State: state, Profile: p}

	log.Debug().Stringer("state", state).Msg("session state changed")
	for _, ch := range g.subs {
		// A subscriber that stopped draining loses events rather than
		// wedging every other listener.
		select {
		case ch <- ev:
		default:
		}
	}
}

func sameProfile(a, b *Profile) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}
