package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pyrelab/firespread/internal/httputil"
	"github.com/pyrelab/firespread/internal/scenario"
)

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	if s.scenarios == nil {
		httputil.NotFound(w, "scenario storage is disabled")
		return
	}

	switch r.Method {
	case http.MethodGet:
		scenarios, err := s.scenarios.List()
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSONOK(w, map[string]interface{}{"scenarios": scenarios})
	case http.MethodPost:
		var sc scenario.Scenario
		if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		sc.ID = ""
		if err := s.scenarios.Create(&sc); err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, sc)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleScenarioSubroutes(w http.ResponseWriter, r *http.Request) {
	if s.scenarios == nil {
		httputil.NotFound(w, "scenario storage is disabled")
		return
	}

	id, action, ok := splitSubroute(r.URL.Path, "/api/scenarios/")
	if !ok {
		httputil.NotFound(w, "not found")
		return
	}

	if action == "" {
		switch r.Method {
		case http.MethodGet:
			s.getScenario(w, id)
		case http.MethodPut:
			s.updateScenario(w, r, id)
		case http.MethodDelete:
			s.deleteScenario(w, id)
		default:
			httputil.MethodNotAllowed(w)
		}
		return
	}

	if action != "run" {
		httputil.NotFound(w, fmt.Sprintf("unknown action %q", action))
		return
	}
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.runScenario(w, id)
}

func (s *Server) getScenario(w http.ResponseWriter, id string) {
	sc, err := s.scenarios.Get(id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSONOK(w, sc)
}

func (s *Server) updateScenario(w http.ResponseWriter, r *http.Request, id string) {
	var sc scenario.Scenario
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	sc.ID = id
	if err := s.scenarios.Update(&sc); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSONOK(w, sc)
}

func (s *Server) deleteScenario(w http.ResponseWriter, id string) {
	if err := s.scenarios.Delete(id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"deleted": id})
}

// runScenario creates a new simulation from a stored scenario.
func (s *Server) runScenario(w http.ResponseWriter, id string) {
	sc, err := s.scenarios.Get(id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	snap, err := s.mgr.Create("", sc.Parameters, sc.Ignitions)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, snap)
}
