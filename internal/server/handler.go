package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/voxpay/gateway/internal/domain"
	"github.com/voxpay/gateway/internal/runtime"
	"github.com/voxpay/gateway/internal/storage"
)

// Handler serves the turn endpoints.
type Handler struct {
	pipeline *runtime.Pipeline
	logger   *slog.Logger
}

// NewHandler creates a Handler over a pipeline.
func NewHandler(pipeline *runtime.Pipeline, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{pipeline: pipeline, logger: logger}
}

// turnRequest is the wire shape for POST /v1/turns.
type turnRequest struct {
	UserText string `json:"user_text"`
	Scenario string `json:"scenario"`
	Action   struct {
		Type    string          `json:"type"`
		Target  string          `json:"target_system"`
		Summary string          `json:"summary"`
		Payload json.RawMessage `json:"payload"`
	} `json:"action"`
	Speak         bool `json:"speak"`
	DriftDetected bool `json:"drift_detected"`
}

// turnResponse is the wire shape returned for a completed turn.
type turnResponse struct {
	TurnID           string                      `json:"turn_id"`
	Outcome          domain.AuthorizationOutcome `json:"outcome"`
	Explanation      domain.ExplanationResult    `json:"explanation"`
	Audit            *domain.AuditSnapshot       `json:"audit,omitempty"`
	AudioBase64      string                      `json:"audio_base64,omitempty"`
	Alignment        *domain.AlignmentData       `json:"alignment,omitempty"`
	NarrationKey     string                      `json:"narration_key,omitempty"`
	AudioUnavailable bool                        `json:"audio_unavailable,omitempty"`
}

// HandleTurn runs one full decision cycle.
func (h *Handler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest("malformed request body"))
		return
	}

	output, err := h.pipeline.RunTurn(r.Context(), &runtime.TurnInput{
		UserText:      req.UserText,
		Scenario:      req.Scenario,
		ActionType:    req.Action.Type,
		TargetSystem:  req.Action.Target,
		ActionSummary: req.Action.Summary,
		Payload:       req.Action.Payload,
		Speak:         req.Speak,
		DriftDetected: req.DriftDetected,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	AddLogField(r.Context(), "turn_id", output.TurnID)
	AddLogField(r.Context(), "decision", string(output.Outcome.Decision))
	AddLogField(r.Context(), "explanation_source", string(output.Explanation.Source))

	resp := &turnResponse{
		TurnID:           output.TurnID,
		Outcome:          output.Outcome,
		Explanation:      output.Explanation,
		Audit:            output.Audit,
		Alignment:        output.Alignment,
		NarrationKey:     output.NarrationKey,
		AudioUnavailable: output.AudioUnavailable,
	}
	if len(output.Audio) > 0 {
		resp.AudioBase64 = base64.StdEncoding.EncodeToString(output.Audio)
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleGetTurn returns one recorded turn for audit display.
func (h *Handler) HandleGetTurn(w http.ResponseWriter, r *http.Request) {
	rec, err := h.pipeline.GetTurn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleListTurns lists recorded turns, newest first.
func (h *Handler) HandleListTurns(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListOptions{AgentID: r.URL.Query().Get("agent_id")}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Offset = n
		}
	}

	recs, err := h.pipeline.ListTurns(r.Context(), opts)
	if err != nil {
		writeError(w, domain.ErrServer("failed to list turns"))
		return
	}
	if recs == nil {
		recs = []*storage.TurnRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": recs})
}

// HandleNarration serves cached narration audio by content key.
func (h *Handler) HandleNarration(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	audio, ok := h.pipeline.NarrationAudio(key)
	if !ok {
		writeError(w, domain.ErrNotFound("no narration under that key").
			WithCode(domain.ErrorCodeNarrationNotCached))
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders a pipeline error with its suggested status; anything
// else maps to a generic 500 without leaking internals.
func writeError(w http.ResponseWriter, err error) {
	var perr *domain.PipelineError
	if !errors.As(err, &perr) {
		perr = domain.ErrServer("internal error")
	}
	writeJSON(w, perr.HTTPStatusCode(), map[string]any{"error": perr})
}
