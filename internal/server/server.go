package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrawal-rohit/palette-auto-generator/internal/config"
	apperrors "github.com/agrawal-rohit/palette-auto-generator/internal/errors"
	"github.com/agrawal-rohit/palette-auto-generator/internal/logging"
	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization"
	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization/annealing"
	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization/fitness"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

var (
	errRunNotFound = apperrors.New("run not found")
	errTooManyRuns = apperrors.New("too many active runs")
	errBadRequest  = apperrors.New("bad request")
)

// JSON-RPC error codes. Codes above -32000 are application specific.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcServerError    = -32000
	rpcRunNotFound    = -32001
	rpcTooManyRuns    = -32002
)

// runEntry tracks one palette search owned by the server.
type runEntry struct {
	id      string
	run     *annealing.Run
	cancel  context.CancelFunc
	created time.Time
	done    chan struct{}
}

func (e *runEntry) finished() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Server implements the HTTP and JSON-RPC server for the palette service.
// It manages palette searches and provides endpoints to start, monitor, and
// stop them.
type Server struct {
	cfg      *config.Config
	logger   Logger
	oracle   optimization.FitnessOracle
	registry *prometheus.Registry
	metrics  *searchMetrics
	events   *EventBroadcaster

	streamPing time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	runs   map[string]*runEntry
	runsMu sync.RWMutex // Protects the runs map
}

// Option configures a Server.
type Option func(*Server)

// WithOracle replaces the default fitness oracle.
func WithOracle(o optimization.FitnessOracle) Option {
	return func(s *Server) {
		if o != nil {
			s.oracle = o
		}
	}
}

// WithRegistry registers the service metrics on reg instead of a private
// registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// NewServer creates a new server instance with the given config and logger
// The logger parameter accepts any type that implements the Logger interface
func NewServer(cfg *config.Config, logger Logger, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:        cfg,
		logger:     logger,
		streamPing: 30 * time.Second,
		ctx:        ctx,
		cancel:     cancel,
		runs:       make(map[string]*runEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.oracle == nil {
		s.oracle = fitness.Default()
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newSearchMetrics(s.registry)
	s.events = NewEventBroadcaster(logger)
	return s
}

// RegisterRoutes mounts the REST and JSON-RPC endpoints on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1/runs", func(r chi.Router) {
		r.Post("/", s.handleStart)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleStatus)
			r.Delete("/", s.handleStop)
			r.Get("/metrics", s.handleMetrics)
			r.Get("/events", s.handleEvents)
		})
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// MetricsHandler serves the service metrics in the Prometheus text format.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// StartRequest holds the parameters of a new search. Omitted numeric fields
// fall back to the configured search defaults.
type StartRequest struct {
	Anchor        string   `json:"anchor"`
	Patience      *int     `json:"patience,omitempty"`
	DecayRate     *float64 `json:"decay_rate,omitempty"`
	MaxIterations *int     `json:"max_iterations,omitempty"`
	Seed          int64    `json:"seed,omitempty"`
}

func (req StartRequest) config(defaults optimization.Config) optimization.Config {
	cfg := defaults
	if req.Patience != nil {
		cfg.Patience = *req.Patience
	}
	if req.DecayRate != nil {
		cfg.DecayRate = *req.DecayRate
	}
	if req.MaxIterations != nil {
		cfg.MaxIterations = *req.MaxIterations
	}
	cfg.Seed = req.Seed
	return cfg
}

// RunStatus is the externally visible state of a search.
type RunStatus struct {
	ID          string              `json:"run_id"`
	State       optimization.State  `json:"state"`
	Anchor      string              `json:"anchor"`
	Seed        int64               `json:"seed"`
	Config      optimization.Config `json:"config"`
	Iteration   int                 `json:"iteration"`
	Temperature float64             `json:"temperature"`
	Stale       int                 `json:"stale"`
	Vector      optimization.Vector `json:"vector"`
	Palette     map[string]string   `json:"palette"`
	Scores      *fitness.Scores     `json:"scores,omitempty"`
	Summary     annealing.Summary   `json:"summary"`
	Error       string              `json:"error,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
}

// scorer is implemented by oracles that can explain a fitness value
// criterion by criterion.
type scorer interface {
	Breakdown(anchor optimization.RGB, v optimization.Vector) fitness.Scores
}

func (s *Server) runStatus(e *runEntry) RunStatus {
	snap := e.run.Snapshot()
	st := newRunStatus(e.id, snap)
	if sc, ok := s.oracle.(scorer); ok {
		scores := sc.Breakdown(snap.Anchor, snap.Vector)
		st.Scores = &scores
	}
	return st
}

func newRunStatus(id string, snap annealing.Snapshot) RunStatus {
	palette := make(map[string]string, optimization.PaletteSize)
	for _, role := range optimization.Roles {
		palette[role.String()] = snap.Vector.Color(role).Hex()
	}
	st := RunStatus{
		ID:          id,
		State:       snap.State,
		Anchor:      snap.Anchor.Hex(),
		Seed:        snap.Seed,
		Config:      snap.Config,
		Iteration:   snap.Iteration,
		Temperature: snap.Temperature,
		Stale:       snap.Stale,
		Vector:      snap.Vector,
		Palette:     palette,
		Summary:     annealing.Summarize(snap.Metrics),
		StartedAt:   snap.StartedAt,
	}
	if snap.Err != nil {
		st.Error = snap.Err.Error()
	}
	if !snap.FinishedAt.IsZero() {
		finished := snap.FinishedAt
		st.FinishedAt = &finished
	}
	return st
}

// MetricsPage is a slice of a run's metrics sequence. Next is the index to
// pass as since on the following request.
type MetricsPage struct {
	ID      string                       `json:"run_id"`
	State   optimization.State           `json:"state"`
	Since   int                          `json:"since"`
	Next    int                          `json:"next"`
	Records []optimization.MetricsRecord `json:"records"`
}

// startRun validates req, registers a new run and advances it in the
// background.
func (s *Server) startRun(req StartRequest) (*runEntry, error) {
	const op = "Server.startRun"

	anchor, err := optimization.ParseHex(req.Anchor)
	if err != nil {
		return nil, apperrors.Wrap(err, "invalid anchor").WithOperation(op).WithComponent("server")
	}
	cfg := req.config(s.cfg.SearchDefaults())

	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	if s.ctx.Err() != nil {
		return nil, apperrors.Wrap(s.ctx.Err(), "server is shutting down").WithOperation(op).WithComponent("server")
	}

	now := time.Now()
	s.evictLocked(now)
	if s.activeLocked() >= s.cfg.Search.MaxRuns {
		return nil, apperrors.Wrapf(errTooManyRuns, "limit is %d", s.cfg.Search.MaxRuns).
			WithOperation(op).WithComponent("server")
	}

	id := uuid.NewString()
	runLogger := s.logger.WithFields(map[string]interface{}{"run_id": id})
	driver := annealing.NewDriver(s.oracle,
		annealing.WithPacer(annealing.NewRatePacer(s.cfg.Search.PaceInterval)),
		annealing.WithLogger(logging.NewZapLogger(runLogger)),
		annealing.WithObserver(&runObserver{id: id, metrics: s.metrics, events: s.events}),
	)
	run, err := driver.Start(cfg, anchor)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to start run").WithOperation(op).WithComponent("server")
	}

	ctx, cancel := context.WithCancel(s.ctx)
	entry := &runEntry{
		id:      id,
		run:     run,
		cancel:  cancel,
		created: now,
		done:    make(chan struct{}),
	}
	s.runs[id] = entry
	s.metrics.runStarted()

	s.wg.Add(1)
	go s.execute(ctx, entry)

	s.logger.Info("Run started", map[string]interface{}{
		"run_id":         id,
		"anchor":         anchor.Hex(),
		"patience":       cfg.Patience,
		"decay_rate":     cfg.DecayRate,
		"max_iterations": cfg.MaxIterations,
	})
	return entry, nil
}

// execute advances a run until it reaches a terminal state.
func (s *Server) execute(ctx context.Context, e *runEntry) {
	defer s.wg.Done()
	defer close(e.done)
	defer e.cancel()

	snap, err := e.run.RunToCompletion(ctx)
	fields := map[string]interface{}{
		"run_id":     e.id,
		"state":      string(snap.State),
		"iterations": snap.Iteration,
	}
	switch {
	case err == nil:
		s.logger.Info("Run finished", fields)
	case apperrors.Is(err, context.Canceled):
		s.logger.Info("Run cancelled", fields)
	default:
		fields["error"] = err.Error()
		if oe, ok := optimization.IsOptimizationError(err); ok {
			fields["component"] = oe.Component
			fields["operation"] = oe.Op
		}
		s.logger.Error("Run failed", fields)
	}
}

func (s *Server) lookup(id string) (*runEntry, error) {
	s.runsMu.RLock()
	defer s.runsMu.RUnlock()
	entry, ok := s.runs[id]
	if !ok {
		return nil, apperrors.Wrapf(errRunNotFound, "run %q", id).WithComponent("server")
	}
	return entry, nil
}

// stopRun requests cancellation of a run. Stopping a finished run is a no-op.
func (s *Server) stopRun(id string) (*runEntry, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	entry.run.Stop()
	s.logger.Info("Run stop requested", map[string]interface{}{"run_id": id})
	return entry, nil
}

func (s *Server) activeLocked() int {
	n := 0
	for _, e := range s.runs {
		if !e.finished() {
			n++
		}
	}
	return n
}

// evictLocked forgets finished runs older than the configured TTL.
func (s *Server) evictLocked(now time.Time) {
	ttl := s.cfg.Search.RunTTL
	if ttl <= 0 {
		return
	}
	for id, e := range s.runs {
		if !e.finished() {
			continue
		}
		if now.Sub(e.run.Snapshot().FinishedAt) >= ttl {
			delete(s.runs, id)
			s.events.Close(id)
			s.logger.Debug("Run evicted", map[string]interface{}{"run_id": id})
		}
	}
}

// classify maps service errors onto HTTP status codes.
func classify(err error) (int, bool) {
	switch {
	case apperrors.Is(err, optimization.ErrInvalidConfig), apperrors.Is(err, errBadRequest):
		return http.StatusBadRequest, true
	case apperrors.Is(err, errRunNotFound):
		return http.StatusNotFound, true
	case apperrors.Is(err, errTooManyRuns):
		return http.StatusTooManyRequests, true
	case apperrors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, true
	}
	return 0, false
}

func rpcCode(err error) int {
	switch apperrors.HTTPStatus(err, classify) {
	case http.StatusBadRequest:
		return rpcInvalidParams
	case http.StatusNotFound:
		return rpcRunNotFound
	case http.StatusTooManyRequests:
		return rpcTooManyRuns
	default:
		return rpcServerError
	}
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      interface{}       `json:"id"`
		Method  string            `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, rpcParseError, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, rpcInvalidRequest, "Invalid Request", request.ID)
		return
	}

	// Route to appropriate handler
	var result interface{}
	var err error

	switch request.Method {
	case "palette.start":
		result, err = s.rpcStart(request.Params)
	case "palette.status":
		result, err = s.rpcStatus(request.Params)
	case "palette.stop":
		result, err = s.rpcStop(request.Params)
	case "palette.metrics":
		result, err = s.rpcMetrics(request.Params)
	default:
		s.respondWithError(w, rpcMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, rpcCode(err), err.Error(), request.ID)
		return
	}

	// Send successful response
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// decodeParams unmarshals the request parameters into v. Parameters may be
// passed by name (an object) or by position, in which case the first element
// holds the object.
func decodeParams(params json.RawMessage, v interface{}) error {
	raw := bytes.TrimSpace(params)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return apperrors.Wrap(errBadRequest, "missing required parameters")
	}
	if raw[0] == '[' {
		var positional []json.RawMessage
		if err := json.Unmarshal(raw, &positional); err != nil {
			return apperrors.Wrapf(errBadRequest, "invalid parameter format: %v", err)
		}
		if len(positional) == 0 {
			return apperrors.Wrap(errBadRequest, "missing required parameters")
		}
		raw = positional[0]
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperrors.Wrapf(errBadRequest, "invalid parameter format: %v", err)
	}
	return nil
}

type runRef struct {
	RunID string `json:"run_id"`
	Since int    `json:"since,omitempty"`
}

func (ref runRef) validate() error {
	if ref.RunID == "" {
		return apperrors.Wrap(errBadRequest, "run_id is required")
	}
	if ref.Since < 0 {
		return apperrors.Wrap(errBadRequest, "since must be >= 0")
	}
	return nil
}

// rpcStart handles palette.start.
// Expected parameters: [{"anchor": "#3366ff", "patience": 25, "decay_rate": 95, "max_iterations": 1000}]
// Returns: {"run_id": "...", "state": "running"}
func (s *Server) rpcStart(params json.RawMessage) (interface{}, error) {
	var req StartRequest
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	entry, err := s.startRun(req)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"run_id": entry.id,
		"state":  entry.run.State(),
	}, nil
}

// rpcStatus handles palette.status.
// Expected parameters: [{"run_id": "..."}]
func (s *Server) rpcStatus(params json.RawMessage) (interface{}, error) {
	var ref runRef
	if err := decodeParams(params, &ref); err != nil {
		return nil, err
	}
	if err := ref.validate(); err != nil {
		return nil, err
	}
	entry, err := s.lookup(ref.RunID)
	if err != nil {
		return nil, err
	}
	return s.runStatus(entry), nil
}

// rpcStop handles palette.stop. Stopping twice is not an error.
// Expected parameters: [{"run_id": "..."}]
func (s *Server) rpcStop(params json.RawMessage) (interface{}, error) {
	var ref runRef
	if err := decodeParams(params, &ref); err != nil {
		return nil, err
	}
	if err := ref.validate(); err != nil {
		return nil, err
	}
	entry, err := s.stopRun(ref.RunID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"run_id": entry.id,
		"state":  entry.run.State(),
	}, nil
}

// rpcMetrics handles palette.metrics.
// Expected parameters: [{"run_id": "...", "since": 0}]
func (s *Server) rpcMetrics(params json.RawMessage) (interface{}, error) {
	var ref runRef
	if err := decodeParams(params, &ref); err != nil {
		return nil, err
	}
	if err := ref.validate(); err != nil {
		return nil, err
	}
	entry, err := s.lookup(ref.RunID)
	if err != nil {
		return nil, err
	}
	return metricsPage(entry, ref.Since), nil
}

func metricsPage(entry *runEntry, since int) MetricsPage {
	state := entry.run.State()
	records := entry.run.Metrics(since)
	return MetricsPage{
		ID:      entry.id,
		State:   state,
		Since:   since,
		Next:    since + len(records),
		Records: records,
	}
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err, classify)
	fields := map[string]interface{}{
		"status": status,
		"error":  err.Error(),
	}
	var ae *apperrors.Error
	if apperrors.As(err, &ae) && ae.Operation != "" {
		fields["operation"] = ae.Operation
	}
	s.logger.Warn("Request rejected", fields)

	s.respondJSON(w, status, map[string]interface{}{
		"error": err.Error(),
	})
}

// handleStart handles POST /api/v1/runs.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, apperrors.Wrapf(errBadRequest, "invalid request body: %v", err))
		return
	}

	entry, err := s.startRun(req)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"run_id": entry.id,
		"state":  entry.run.State(),
	})
}

// handleStatus handles GET /api/v1/runs/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	entry, err := s.lookup(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.runStatus(entry))
}

// handleStop handles DELETE /api/v1/runs/{id}.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	entry, err := s.stopRun(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": entry.id,
		"state":  entry.run.State(),
		"status": "stop requested",
	})
}

// handleMetrics handles GET /api/v1/runs/{id}/metrics?since=N.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	since := 0
	if raw := r.URL.Query().Get("since"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, apperrors.Wrapf(errBadRequest, "invalid since %q", raw))
			return
		}
		since = n
	}

	entry, err := s.lookup(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, metricsPage(entry, since))
}

// Wait blocks until every run started by the server has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Close stops all runs and waits for their goroutines to exit.
func (s *Server) Close() error {
	s.cancel()

	s.runsMu.RLock()
	for _, e := range s.runs {
		e.run.Stop()
	}
	s.runsMu.RUnlock()

	s.wg.Wait()
	return nil
}
