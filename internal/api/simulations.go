package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pyrelab/firespread/internal/firemodel"
	"github.com/pyrelab/firespread/internal/httputil"
	"github.com/pyrelab/firespread/internal/sim"
)

// CreateSimulationRequest is the body of POST /api/simulations. A supplied
// simulationId must be unused; leaving it empty gets a generated one.
type CreateSimulationRequest struct {
	SimulationID   string               `json:"simulationId,omitempty"`
	Parameters     firemodel.Parameters `json:"parameters"`
	IgnitionPoints []sim.IgnitionPoint  `json:"ignitionPoints"`
}

func (s *Server) handleSimulations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, map[string]interface{}{
			"simulations": s.mgr.List(),
		})
	case http.MethodPost:
		s.createSimulation(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) createSimulation(w http.ResponseWriter, r *http.Request) {
	var req CreateSimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	snap, err := s.mgr.Create(req.SimulationID, req.Parameters, req.IgnitionPoints)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleSimulationSubroutes(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitSubroute(r.URL.Path, "/api/simulations/")
	if !ok {
		httputil.NotFound(w, "not found")
		return
	}

	if action == "" {
		switch r.Method {
		case http.MethodGet:
			s.getSimulation(w, id)
		case http.MethodDelete:
			s.deleteSimulation(w, id)
		default:
			httputil.MethodNotAllowed(w)
		}
		return
	}

	switch action {
	case "start", "pause", "stop":
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w)
			return
		}
		s.controlSimulation(w, id, action)
	case "statistics":
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		s.getStatistics(w, id)
	case "stream":
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		s.streamSimulation(w, r, id)
	case "chart":
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		s.chartSimulation(w, id)
	default:
		httputil.NotFound(w, fmt.Sprintf("unknown action %q", action))
	}
}

func (s *Server) getSimulation(w http.ResponseWriter, id string) {
	snap, err := s.mgr.Snapshot(id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSONOK(w, snap)
}

func (s *Server) deleteSimulation(w http.ResponseWriter, id string) {
	if err := s.mgr.Delete(id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"deleted": id})
}

func (s *Server) controlSimulation(w http.ResponseWriter, id, action string) {
	var err error
	switch action {
	case "start":
		err = s.mgr.Start(id)
	case "pause":
		err = s.mgr.Pause(id)
	case "stop":
		err = s.mgr.Stop(id)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	snap, err := s.mgr.Snapshot(id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSONOK(w, snap)
}

func (s *Server) getStatistics(w http.ResponseWriter, id string) {
	stats, err := s.mgr.Statistics(id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSONOK(w, stats)
}
