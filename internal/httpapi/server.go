// Package httpapi exposes the assistant to remote push-to-talk clients:
// gesture endpoints, a websocket transcript feed, health and metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lexiqai/alfred/internal/observability"
	"github.com/lexiqai/alfred/internal/pipeline"
)

// Gestures is the controller as driven over HTTP
type Gestures interface {
	Press(ctx context.Context) error
	Release(ctx context.Context) pipeline.Result
	Listen(ctx context.Context) pipeline.Result
	Type(ctx context.Context, text string) pipeline.Result
	Replay(ctx context.Context) error
}

// TurnResponse is the JSON body returned for a finished turn
type TurnResponse struct {
	ID       string `json:"id,omitempty"`
	Outcome  string `json:"outcome"`
	Input    string `json:"input,omitempty"`
	Reply    string `json:"reply,omitempty"`
	Artifact string `json:"artifact,omitempty"`
	Error    string `json:"error,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

type sayRequest struct {
	Text string `json:"text"`
}

// Server routes HTTP requests to the controller. Turns run on the server's
// base context so a dropped request does not abort a turn mid-way.
type Server struct {
	ctx      context.Context
	gestures Gestures
	hub      *Hub
	checks   []observability.Check
	metrics  bool
	logger   zerolog.Logger
}

// NewServer creates the HTTP surface
func NewServer(ctx context.Context, gestures Gestures, hub *Hub, metrics bool, checks ...observability.Check) *Server {
	return &Server{
		ctx:      ctx,
		gestures: gestures,
		hub:      hub,
		checks:   checks,
		metrics:  metrics,
		logger:   observability.Component("httpapi"),
	}
}

// Handler returns the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /press", s.handlePress)
	mux.HandleFunc("POST /release", s.handleRelease)
	mux.HandleFunc("POST /listen", s.handleListen)
	mux.HandleFunc("POST /say", s.handleSay)
	mux.HandleFunc("POST /replay", s.handleReplay)
	mux.Handle("GET /ws/transcript", s.hub)
	mux.HandleFunc("GET /health", observability.HealthCheckHandler())
	mux.HandleFunc("GET /ready", observability.ReadinessHandler(s.checks...))
	if s.metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	return mux
}

func (s *Server) handlePress(w http.ResponseWriter, r *http.Request) {
	if err := s.gestures.Press(s.ctx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "listening"})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.gestures.Release(s.ctx))
}

func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.gestures.Listen(s.ctx))
}

func (s *Server) handleSay(w http.ResponseWriter, r *http.Request) {
	var req sayRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	s.writeResult(w, s.gestures.Type(s.ctx, req.Text))
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	if err := s.gestures.Replay(s.ctx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "replayed"})
}

func (s *Server) writeResult(w http.ResponseWriter, res pipeline.Result) {
	body := TurnResponse{
		ID:      res.ID,
		Outcome: res.Outcome.String(),
		Input:   res.InputText,
		Reply:   res.ReplyText,
	}
	if res.Artifact != nil {
		body.Artifact = res.Artifact.ID
	}
	if res.Err != nil {
		body.Error = res.Err.Error()
		body.Kind = pipeline.Classify(res.Err).String()
	}
	s.logger.Debug().Str("outcome", body.Outcome).Msg("Turn served")
	writeJSON(w, statusFor(res.Outcome), body)
}

func statusFor(o pipeline.Outcome) int {
	switch o {
	case pipeline.OutcomeRejected:
		return http.StatusConflict
	case pipeline.OutcomeEngineFailure, pipeline.OutcomeSynthesisFailure:
		return http.StatusBadGateway
	case pipeline.OutcomeDeviceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch pipeline.Classify(err) {
	case pipeline.KindTurnInFlight:
		status = http.StatusConflict
	case pipeline.KindNoAudio:
		status = http.StatusNotFound
	case pipeline.KindDevice:
		status = http.StatusServiceUnavailable
	}
	var pe *pipeline.Error
	kind := ""
	if errors.As(err, &pe) {
		kind = pe.Kind.String()
	}
	writeJSON(w, status, TurnResponse{Outcome: "error", Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
