package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"shiftopt/internal/model"
	"shiftopt/internal/service"
)

func (s *Server) handleRoot(r *http.Request) (interface{}, error) {
	if r.URL.Path != "/" {
		return nil, errNotFound("Not found")
	}
	return s.healthBody(), nil
}

func (s *Server) handleHealth(r *http.Request) (interface{}, error) {
	return s.healthBody(), nil
}

func (s *Server) healthBody() map[string]interface{} {
	return map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"service":   serviceName,
	}
}

func (s *Server) handleOptimize(r *http.Request) (interface{}, error) {
	if r.Method != http.MethodPost {
		return nil, errMethodNotAllowed()
	}

	req, err := decodeRequest(r)
	if err != nil {
		return nil, err
	}

	response, err := s.svc.Optimize(r.Context(), req)
	if err != nil {
		return nil, mapServiceError(err)
	}
	return response, nil
}

func (s *Server) handleOptimizeAsync(r *http.Request) (interface{}, error) {
	if r.Method != http.MethodPost {
		return nil, errMethodNotAllowed()
	}

	req, err := decodeRequest(r)
	if err != nil {
		return nil, err
	}
	return s.svc.OptimizeAsync(req), nil
}

func (s *Server) handleRunStatus(r *http.Request) (interface{}, error) {
	if r.Method != http.MethodGet {
		return nil, errMethodNotAllowed()
	}

	runID := strings.TrimPrefix(r.URL.Path, "/optimize/status/")
	if runID == "" || strings.Contains(runID, "/") {
		return nil, errNotFound("Optimization run not found")
	}

	status, ok := s.svc.RunStatus(runID)
	if !ok {
		return nil, errNotFound("Optimization run not found")
	}
	return status, nil
}

func (s *Server) handleValidateConstraints(r *http.Request) (interface{}, error) {
	if r.Method != http.MethodPost {
		return nil, errMethodNotAllowed()
	}

	var body struct {
		Constraints []model.Constraint `json:"constraints"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, errBadRequest(map[string]string{"error": "Invalid request body: " + err.Error()})
	}
	return s.svc.ValidateConstraints(body.Constraints), nil
}

func (s *Server) handleAlgorithms(r *http.Request) (interface{}, error) {
	if r.Method != http.MethodGet {
		return nil, errMethodNotAllowed()
	}
	return s.svc.Algorithms(), nil
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.svc == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Service not initialized"})
		return
	}
	s.svc.MetricsHandler().ServeHTTP(w, r)
}

func decodeRequest(r *http.Request) (*model.OptimizationRequest, error) {
	var req model.OptimizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errBadRequest(map[string]string{"error": "Invalid request body: " + err.Error()})
	}
	return &req, nil
}

// mapServiceError translates pipeline failures into HTTP errors: validation
// results become structured 400s, everything else bubbles up as 500.
func mapServiceError(err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return errBadRequest(map[string]interface{}{
			"error":       verr.Result.ErrorMessage,
			"violations":  verr.Result.Violations,
			"warnings":    verr.Result.Warnings,
			"suggestions": verr.Result.Suggestions,
			"timestamp":   time.Now().UTC(),
		})
	}
	return err
}
