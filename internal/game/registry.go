package game

import (
	"fmt"
	"sync"

	"chat-game-bot/internal/model"
)

// Registry manages the registered game rules.
// Lookup is by game type; listing keeps registration order so that inbound
// text is offered to games deterministically.
type Registry struct {
	rules map[model.GameType]Rules
	order []model.GameType
	mu    sync.RWMutex
}

// NewRegistry creates a new rules registry.
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[model.GameType]Rules),
	}
}

// Register adds rules to the registry.
// If rules for the same type already exist, they are replaced in place.
func (r *Registry) Register(g Rules) error {
	if g == nil {
		return fmt.Errorf("cannot register nil rules")
	}
	if g.Type() == "" {
		return fmt.Errorf("game type cannot be empty")
	}
	if g.MinPlayers() < 1 || g.MaxPlayers() < g.MinPlayers() {
		return fmt.Errorf("invalid player bounds for %s: %d..%d", g.Type(), g.MinPlayers(), g.MaxPlayers())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[g.Type()]; !ok {
		r.order = append(r.order, g.Type())
	}
	r.rules[g.Type()] = g
	return nil
}

// Get retrieves the rules for a game type.
func (r *Registry) Get(t model.GameType) (Rules, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.rules[t]
	return g, ok
}

// List returns all registered rules in registration order.
// The returned slice is a copy.
func (r *Registry) List() []Rules {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Rules, 0, len(r.order))
	for _, t := range r.order {
		list = append(list, r.rules[t])
	}
	return list
}

// Types returns all registered game types in registration order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.order))
	for _, t := range r.order {
		types = append(types, string(t))
	}
	return types
}

// Count returns the number of registered games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}
