// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"github.com/helios-ops/helios/pkg/errors"
)

// Status is a snapshot of one agent for the API.
type Status struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Executions  int               `json:"executions"`
	LastRun     *ExecutionRecord  `json:"last_run,omitempty"`
	History     []ExecutionRecord `json:"history,omitempty"`
}

// Registry holds the specialist agents in a stable order.
type Registry struct {
	order  []string
	agents map[string]Agent
}

// NewRegistry creates a registry from the given agents.
func NewRegistry(agents ...Agent) *Registry {
	r := &Registry{agents: make(map[string]Agent, len(agents))}
	for _, a := range agents {
		r.order = append(r.order, a.Name())
		r.agents[a.Name()] = a
	}
	return r
}

// Get returns the named agent.
func (r *Registry) Get(name string) (Agent, error) {
	a, ok := r.agents[name]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, "unknown agent", nil).
			WithContext("agent", name)
	}
	return a, nil
}

// Names returns agent names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Statuses reports every agent's status. Set withHistory to include the
// full execution history rather than just the last run.
func (r *Registry) Statuses(withHistory bool) []Status {
	out := make([]Status, 0, len(r.order))
	for _, name := range r.order {
		a := r.agents[name]
		st := Status{Name: a.Name(), Description: a.Description()}
		if hp, ok := a.(HistoryProvider); ok {
			history := hp.History()
			st.Executions = len(history)
			if len(history) > 0 {
				last := history[len(history)-1]
				st.LastRun = &last
			}
			if withHistory {
				st.History = history
			}
		}
		out = append(out, st)
	}
	return out
}
