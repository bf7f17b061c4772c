package control

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ably/ably-asset-tracking-test-proxy/internal/faults"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/simulation"
)

type proxyDescriptor struct {
	ListenPort int `json:"listenPort"`
}

type simulationDescriptor struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Proxy proxyDescriptor `json:"proxy"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleListFaults(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, faults.List())
}

// handleCreateSimulation implements createSimulation(name) (§4.4): generate
// a fresh id, simulate the fault, register it, and describe it back.
func (s *Server) handleCreateSimulation(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r.URL.Path)

	id := simulation.NewID()
	sim, err := faults.Create(name, id, s.cfg)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := sim.Simulate(); err != nil {
		s.logger.Error("simulate failed", "fault", name, "error", err)
		http.Error(w, "simulate failed", http.StatusInternalServerError)
		return
	}
	s.reg.Add(sim)

	writeJSON(w, http.StatusOK, simulationDescriptor{
		ID:   sim.ID(),
		Name: sim.Name(),
		Type: string(sim.Type()),
		Proxy: proxyDescriptor{
			ListenPort: sim.Proxy().ListenPort(),
		},
	})
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	s.delegate(w, r, s.reg.Enable)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	s.delegate(w, r, s.reg.Resolve)
}

func (s *Server) handleCleanUp(w http.ResponseWriter, r *http.Request) {
	s.delegate(w, r, s.reg.CleanUp)
}

// delegate looks up the id from the request path and calls op, mapping the
// registry's error taxonomy onto HTTP status codes (§7): unknown id -> 404,
// lifecycle misuse -> 409, anything else -> 500.
func (s *Server) delegate(w http.ResponseWriter, r *http.Request, op func(id string) error) {
	id := pathParam(r.URL.Path)

	err := op(id)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, simulation.ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, simulation.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
