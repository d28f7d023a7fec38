package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"deliverydash/src/dataset"
	"deliverydash/src/processor"
)

// ErrorResponse is the API error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// GetDashboard handles GET /api/dashboard. Query parameters: start_date,
// end_date (YYYY-MM-DD, inclusive), cities and rating_groups
// (comma-separated). Absent parameters default to "all selected"; a
// present-but-empty parameter selects nothing.
func (s *Server) GetDashboard(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dashboard"
	timer := s.metrics.NewTimer(s.metrics.APIRequestDuration.WithLabelValues(endpoint))
	defer timer.ObserveDuration()

	filters, err := parseFilters(r)
	if err != nil {
		s.sendError(w, r, endpoint, err.Error(), http.StatusBadRequest)
		return
	}

	table, err := s.loadTable(w, r, endpoint)
	if err != nil {
		return
	}

	renderTimer := s.metrics.NewTimer(s.metrics.RenderDuration)
	vm := processor.Render(table, filters)
	renderTimer.ObserveDuration()

	s.sendJSON(w, r, endpoint, vm)
}

// GetFilterOptions handles GET /api/filters, returning the selectable
// cities, rating groups and date bounds of the clean table.
func (s *Server) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/filters"
	timer := s.metrics.NewTimer(s.metrics.APIRequestDuration.WithLabelValues(endpoint))
	defer timer.ObserveDuration()

	table, err := s.loadTable(w, r, endpoint)
	if err != nil {
		return
	}

	s.sendJSON(w, r, endpoint, processor.Options(table))
}

// Healthz reports liveness; it deliberately does not touch the dataset.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) loadTable(w http.ResponseWriter, r *http.Request, endpoint string) (*dataset.Table, error) {
	table, err := s.loader.Load(s.datasetPath)
	if err != nil {
		var loadErr *dataset.LoadError
		if errors.As(err, &loadErr) {
			s.logger.Error("dataset load failed: " + err.Error())
		}
		s.sendError(w, r, endpoint, "dataset unavailable", http.StatusInternalServerError)
		return nil, err
	}
	s.metrics.DatasetRows.Set(float64(table.Nrow()))
	return table, nil
}

// parseFilters builds the filter selection from query parameters.
func parseFilters(r *http.Request) (processor.Filters, error) {
	q := r.URL.Query()
	var f processor.Filters

	if v := q.Get("start_date"); v != "" {
		if _, err := time.Parse(dataset.DateLayout, v); err != nil {
			return f, fmt.Errorf("invalid start_date %q, expected YYYY-MM-DD", v)
		}
		f.StartDate = v
	}
	if v := q.Get("end_date"); v != "" {
		if _, err := time.Parse(dataset.DateLayout, v); err != nil {
			return f, fmt.Errorf("invalid end_date %q, expected YYYY-MM-DD", v)
		}
		f.EndDate = v
	}
	if f.StartDate != "" && f.EndDate != "" && f.StartDate > f.EndDate {
		return f, fmt.Errorf("start_date is after end_date")
	}

	if raw, ok := q["cities"]; ok {
		f.Cities = splitList(raw)
	}

	if raw, ok := q["rating_groups"]; ok {
		f.RatingGroups = []int{}
		for _, item := range splitList(raw) {
			v, err := strconv.Atoi(item)
			if err != nil {
				return f, fmt.Errorf("invalid rating group %q", item)
			}
			f.RatingGroups = append(f.RatingGroups, v)
		}
	}

	return f, nil
}

// splitList flattens repeated comma-separated parameters into one slice,
// never returning nil: a present parameter always means an explicit
// selection, even an empty one.
func splitList(raw []string) []string {
	out := []string{}
	for _, part := range raw {
		for _, item := range strings.Split(part, ",") {
			item = strings.TrimSpace(item)
			if item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func (s *Server) sendJSON(w http.ResponseWriter, r *http.Request, endpoint string, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response: " + err.Error())
	}
	s.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(http.StatusOK))
}

func (s *Server) sendError(w http.ResponseWriter, r *http.Request, endpoint, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
	s.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(code))
	if code >= http.StatusInternalServerError {
		s.metrics.RecordAPIError("internal", endpoint)
	} else {
		s.metrics.RecordAPIError("bad_request", endpoint)
	}
}
