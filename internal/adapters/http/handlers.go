package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb"
	"github.com/spf13/cast"

	"github.com/jobrunner/refsys/internal/application"
	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/registry"
)

// TransformBody is the JSON body of a POST transform request.
type TransformBody struct {
	Source  string      `json:"source"`
	Target  string      `json:"target"`
	Lenient bool        `json:"lenient"`
	Points  [][]float64 `json:"points"`
}

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := s.health.GetHealthDetails(r.Context())

	status := http.StatusOK
	if !details.Healthy {
		status = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":             boolToStatus(details.Healthy),
		"ready":              details.Ready,
		"definitions_loaded": details.DefinitionsLoaded,
		"operations_cached":  details.OperationsCached,
		"components":         details.Components,
	}
	if !details.LastReload.IsZero() {
		response["last_reload"] = details.LastReload
	}
	s.writeJSON(w, status, response)
}

// handleLiveness returns liveness status.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsHealthy(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

// handleReadiness returns readiness status.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsReady(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
}

// handleListCRS returns all registered CRS definitions, optionally filtered by kind.
func (s *Server) handleListCRS(w http.ResponseWriter, r *http.Request) {
	defs, err := s.catalog.ListDefinitions(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}

	kind := strings.ToLower(r.URL.Query().Get("kind"))
	response := make([]map[string]interface{}, 0, len(defs))
	for _, def := range defs {
		if kind != "" && def.Kind != kind {
			continue
		}
		response = append(response, map[string]interface{}{
			"code": def.Code,
			"name": def.Name,
			"kind": def.Kind,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"crs":   response,
		"count": len(response),
	})
}

// handleGetCRS returns one definition as JSON, or as YAML with ?format=yaml.
func (s *Server) handleGetCRS(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	def, err := s.catalog.GetDefinition(r.Context(), code)
	if err != nil {
		s.handleError(w, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "yaml") {
		data, err := registry.MarshalDefinition(*def)
		if err != nil {
			s.handleError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(data)
		return
	}

	s.writeJSON(w, http.StatusOK, def)
}

// handleOperation describes the operation between two CRSs.
func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lenient, err := parseBool(q.Get("lenient"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.transform.Resolve(r.Context(), q.Get("source"), q.Get("target"), lenient)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, info)
}

// handleTransformQuery transforms points given as ?coords=x,y[,z]&coords=...
func (s *Server) handleTransformQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lenient, err := parseBool(q.Get("lenient"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	points, err := parsePoints(q["coords"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.transformPoints(r.Context(), w, domain.TransformRequest{
		Source:  q.Get("source"),
		Target:  q.Get("target"),
		Lenient: lenient,
		Points:  points,
	})
}

// handleTransformBody transforms points given as a JSON body.
func (s *Server) handleTransformBody(w http.ResponseWriter, r *http.Request) {
	var body TransformBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	s.transformPoints(r.Context(), w, domain.TransformRequest(body))
}

func (s *Server) transformPoints(ctx context.Context, w http.ResponseWriter, req domain.TransformRequest) {
	if len(req.Points) > s.config.MaxPoints {
		s.handleError(w, &domain.PointLimitError{Field: "points", Requested: len(req.Points), Limit: s.config.MaxPoints})
		return
	}

	result, err := s.transform.Transform(ctx, req)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"operation":          result.Operation,
		"points":             jsonPoints(result.Points),
		"count":              len(result.Points),
		"processing_time_ms": result.ProcessingTime.Milliseconds(),
	})
}

// jsonPoints replaces ordinates JSON cannot encode, such as the NaN of a point
// outside a projection's domain, with null.
func jsonPoints(points [][]float64) [][]interface{} {
	out := make([][]interface{}, len(points))
	for i, p := range points {
		out[i] = make([]interface{}, len(p))
		for j, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			out[i][j] = v
		}
	}
	return out
}

// handleEnvelope reprojects a bounding box given as ?bbox=minx,miny,maxx,maxy.
func (s *Server) handleEnvelope(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lenient, err := parseBool(q.Get("lenient"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bound, err := parseBBox(q.Get("bbox"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	densify := 0
	if v := q.Get("densify"); v != "" {
		densify, err = cast.ToIntE(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid densify parameter")
			return
		}
	}

	req := domain.EnvelopeRequest{
		Source:  q.Get("source"),
		Target:  q.Get("target"),
		Lenient: lenient,
		Bound:   bound,
		Densify: densify,
	}
	if err := req.Validate(); err != nil {
		s.handleError(w, err)
		return
	}
	if err := req.CheckPointLimit(s.config.MaxPoints); err != nil {
		s.handleError(w, err)
		return
	}

	result, err := s.transform.ReprojectEnvelope(r.Context(), req)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"operation": result.Operation,
		"bbox": []float64{
			result.Bound.Min[0], result.Bound.Min[1],
			result.Bound.Max[0], result.Bound.Max[1],
		},
	})
}

// handleReload handles the reload trigger endpoint.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	result, err := s.reload.TriggerReload(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleOpenAPI returns the OpenAPI specification.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	spec, err := getOpenAPIJSON()
	if err != nil {
		s.logger.Error("failed to get OpenAPI spec", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to load OpenAPI specification")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(spec)
}

// parsePoints parses one point per value, each two or more comma-separated
// ordinates. Several points are passed as repeated parameters.
func parsePoints(values []string) ([][]float64, error) {
	points := make([][]float64, 0, len(values))
	for _, value := range values {
		p, err := parseOrdinates(value)
		if err != nil {
			return nil, err
		}
		if len(p) < 2 {
			return nil, fmt.Errorf("invalid coords %q: need at least two ordinates", value)
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil, errors.New("coords parameter required: coords=x,y[,z]")
	}
	return points, nil
}

func parseOrdinates(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("invalid coords %q: empty ordinate", s)
		}
		v, err := cast.ToFloat64E(part)
		if err != nil {
			return nil, fmt.Errorf("invalid coords %q: %q is not a number", s, part)
		}
		out[i] = v
	}
	return out, nil
}

// parseBBox parses minx,miny,maxx,maxy. X and Y are the first and second ordinates
// of the source CRS.
func parseBBox(s string) (orb.Bound, error) {
	if s == "" {
		return orb.Bound{}, errors.New("bbox parameter required: bbox=minx,miny,maxx,maxy")
	}
	v, err := parseOrdinates(s)
	if err != nil {
		return orb.Bound{}, err
	}
	if len(v) != 4 {
		return orb.Bound{}, fmt.Errorf("invalid bbox %q: need four values", s)
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	b, err := cast.ToBoolE(s)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", s)
	}
	return b, nil
}

// handleError maps service errors to HTTP status codes.
func (s *Server) handleError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrOperationNotFound):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrTooManyPoints):
		s.writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &validationErr):
		s.writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, application.ErrRateLimited):
		w.Header().Set("Retry-After", "30")
		s.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again in 30 seconds.")
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrMismatchedDimension):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnsupported):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func boolToStatus(b bool) string {
	if b {
		return "ok"
	}
	return "unhealthy"
}
