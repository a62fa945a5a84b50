package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrMapNotFound is returned for unknown map IDs
var ErrMapNotFound = errors.New("map not found")

// maxLeakRequestBytes bounds the body of a leak query
const maxLeakRequestBytes = 1 << 20

type PointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p PointRequest) Point() orb.Point {
	return orb.Point{p.X, p.Y}
}

type LeakRequest struct {
	Start   PointRequest `json:"start"`
	End     PointRequest `json:"end"`
	Radius  float64      `json:"radius,omitempty" validate:"gte=0"`
	Sectors []int        `json:"sectors,omitempty" validate:"omitempty,dive,gte=0"`
}

func (r LeakRequest) Query() LeakQuery {
	return LeakQuery{
		Start:   r.Start.Point(),
		End:     r.End.Point(),
		Radius:  r.Radius,
		Sectors: r.Sectors,
	}
}

type LeakResponse struct {
	Found            bool           `json:"found"`
	Attempts         int            `json:"attempts"`
	NumNodes         int            `json:"numNodes"`
	NumBlockingNodes int            `json:"numBlockingNodes"`
	DomainSectors    int            `json:"domainSectors"`
	SourceSector     int            `json:"sourceSector"`
	DestSector       int            `json:"destinationSector"`
	Path             []PointRequest `json:"path"`
	Linedefs         []int          `json:"linedefs"`
	Message          string         `json:"message,omitempty"`
}

type MapResponse struct {
	ID       string `json:"id"`
	Sectors  int    `json:"sectors"`
	Linedefs int    `json:"linedefs"`
}

// mapStore keeps uploaded maps in memory
type mapStore struct {
	mu   sync.RWMutex
	maps map[string]*LoadedMap
}

func newMapStore() *mapStore {
	return &mapStore{maps: make(map[string]*LoadedMap)}
}

func (s *mapStore) Put(lm *LoadedMap) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maps[lm.ID] = lm
	return len(s.maps)
}

func (s *mapStore) Get(id string) (*LoadedMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lm, ok := s.maps[id]
	if !ok {
		return nil, ErrMapNotFound
	}
	return lm, nil
}

func (s *mapStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.maps)
}

// Server is the HTTP front end of the leak finder
type Server struct {
	cfg     Config
	logger  *log.Logger
	metrics *Metrics
	store   *mapStore
}

// NewServer creates a server with an empty map store
func NewServer(cfg Config, logger *log.Logger) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: NewMetrics(),
		store:   newMapStore(),
	}
}

// corsMiddleware adds CORS headers to allow frontend requests
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Post("/maps", s.metrics.instrument("upload_map", s.uploadMapHandler))
	r.Post("/maps/{id}/leak", s.metrics.instrument("leak", s.leakHandler))
	r.Post("/maps/{id}/leak/geojson", s.metrics.instrument("leak_geojson", s.leakGeoJSONHandler))
	r.Get("/health", s.healthHandler)
	if s.cfg.Server.EnableMetrics {
		r.Handle("/metrics", s.metrics.Handler())
	}

	return r
}

// ListenAndServe starts the HTTP server on the configured address
func (s *Server) ListenAndServe() error {
	s.logger.Info("server starting", "addr", s.cfg.Server.Addr)
	s.logger.Info("endpoints",
		"upload", "POST /maps",
		"leak", "POST /maps/{id}/leak",
		"geojson", "POST /maps/{id}/leak/geojson",
		"health", "GET /health")

	return http.ListenAndServe(s.cfg.Server.Addr, s.Routes())
}

// POST /maps - Upload a map document (JSON, or YAML with ?format=yaml)
func (s *Server) uploadMapHandler(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxMapBytes))
	if err != nil {
		s.logger.Warn("failed to read map upload", "err", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	m, err := DecodeMap(data, requestFormat(r))
	if err != nil {
		s.logger.Warn("invalid map document", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	lm := NewLoadedMap(uuid.NewString(), m)
	count := s.store.Put(lm)
	s.metrics.MapsLoaded.Set(float64(count))

	s.logger.Info("map loaded", "id", lm.ID, "sectors", len(m.Sectors), "linedefs", len(m.Linedefs))

	writeJSON(w, http.StatusCreated, MapResponse{
		ID:       lm.ID,
		Sectors:  len(m.Sectors),
		Linedefs: len(m.Linedefs),
	})
}

// POST /maps/{id}/leak - Search for a sound leak between two points
func (s *Server) leakHandler(w http.ResponseWriter, r *http.Request) {
	outcome, ok := s.runLeak(w, r)
	if !ok {
		return
	}

	response := LeakResponse{
		Found:        outcome.Found,
		Attempts:     outcome.Attempts(),
		NumNodes:     outcome.NumNodes(),
		SourceSector: outcome.Source.Index,
		DestSector:   outcome.Destination.Index,
		Path:         []PointRequest{},
		Linedefs:     []int{},
	}

	if lf := outcome.Finder; lf != nil {
		response.NumBlockingNodes = lf.NumBlockingNodes()
		response.DomainSectors = len(lf.Sectors())
		for _, p := range lf.PathPoints() {
			response.Path = append(response.Path, PointRequest{X: p.X(), Y: p.Y()})
		}
		for _, l := range lf.PathLinedefs() {
			response.Linedefs = append(response.Linedefs, l.Index)
		}
	}

	switch {
	case outcome.Finder == nil:
		response.Message = "Destination is out of earshot of the start point"
	case !outcome.Found:
		response.Message = "No sound path between the two points"
	}

	writeJSON(w, http.StatusOK, response)
}

// POST /maps/{id}/leak/geojson - Search and return the node graph as GeoJSON
func (s *Server) leakGeoJSONHandler(w http.ResponseWriter, r *http.Request) {
	outcome, ok := s.runLeak(w, r)
	if !ok {
		return
	}

	fc := geojson.NewFeatureCollection()
	if outcome.Finder != nil {
		fc = outcome.Finder.FeatureCollection()
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		s.logger.Error("failed to marshal geojson", "err", err)
		http.Error(w, "Failed to encode result", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// runLeak decodes and validates the request and runs the search. It writes
// the error response itself and returns false on failure.
func (s *Server) runLeak(w http.ResponseWriter, r *http.Request) (*LeakOutcome, bool) {
	id := chi.URLParam(r, "id")
	lm, err := s.store.Get(id)
	if err != nil {
		http.Error(w, "Map not found. Upload it with POST /maps first", http.StatusNotFound)
		return nil, false
	}

	var req LeakRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLeakRequestBytes)).Decode(&req); err != nil {
		s.logger.Warn("invalid leak request", "err", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, formatValidationError(err).Error(), http.StatusUnprocessableEntity)
		return nil, false
	}

	logger := s.logger.With("map", id)
	logger.Info("leak request", "start", req.Start, "end", req.End, "radius", req.Radius)

	outcome, err := lm.RunLeakQuery(req.Query(), s.cfg.SearchOptions(logger)...)
	if err != nil {
		if errors.Is(err, ErrInvalidDomain) {
			s.metrics.LeakInvalidDomains.Inc()
		}
		logger.Warn("leak search rejected", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	s.metrics.ObserveSearch(outcome)
	logger.Info("leak search done",
		"found", outcome.Found,
		"attempts", outcome.Attempts(),
		"nodes", outcome.NumNodes(),
		"elapsed", outcome.Elapsed)

	return outcome, true
}

// GET /health - Health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"maps":   s.store.Len(),
	})
}

func requestFormat(r *http.Request) string {
	if f := r.URL.Query().Get("format"); f != "" {
		return strings.ToLower(f)
	}
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		return "yaml"
	}
	return "json"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
