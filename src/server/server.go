package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"deliverydash/src/config"
	"deliverydash/src/dataset"
	"deliverydash/src/metrics"
	"deliverydash/src/storage"
)

// Server wires the dashboard API together: the memoized loader supplies the
// clean table, the processor renders view models per request.
type Server struct {
	loader      *dataset.Loader
	datasetPath string
	logger      *storage.Logger
	metrics     *metrics.Collector
}

func New(loader *dataset.Loader, datasetPath string, logger *storage.Logger, collector *metrics.Collector) *Server {
	return &Server{
		loader:      loader,
		datasetPath: datasetPath,
		logger:      logger,
		metrics:     collector,
	}
}

// Router builds the full route table, including the Prometheus endpoint.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/dashboard", s.GetDashboard).Methods(http.MethodGet)
	r.HandleFunc("/api/filters", s.GetFilterOptions).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/logs", s.StreamLogs).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// HTTPServer builds the http.Server with the configured timeouts.
func (s *Server) HTTPServer(cfg *config.Config) *http.Server {
	return &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}
}

// StreamLogs streams log entries to the client as they happen, for a
// minimal live operations view.
func (s *Server) StreamLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	logChan := s.logger.Subscribe()
	for {
		select {
		case msg := <-logChan:
			if _, err := fmt.Fprint(w, msg); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}
