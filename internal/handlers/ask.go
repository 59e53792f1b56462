package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"medassist-ai/internal/contextutil"
	"medassist-ai/internal/pipeline"
)

// maxQuestionLength bounds accepted question size.
const maxQuestionLength = 4000

// answerer is the slice of the pipeline the handler needs.
type answerer interface {
	Answer(ctx context.Context, question string, debug bool) (*pipeline.Answer, error)
}

// AskHandler serves the question answering endpoint.
type AskHandler struct {
	engine answerer
}

// NewAskHandler creates the ask endpoint handler.
func NewAskHandler(engine answerer) *AskHandler {
	return &AskHandler{engine: engine}
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask handles POST /api/v1/ask. Pass ?debug=true to include the pipeline's
// intermediate artifacts in the response.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if len(req.Question) > maxQuestionLength {
		writeError(w, http.StatusBadRequest, "question too long")
		return
	}

	debug := r.URL.Query().Get("debug") == "true"

	answer, err := h.engine.Answer(ctx, req.Question, debug)
	if err != nil {
		logger.ErrorContext(ctx, "failed to answer question", "error", err)
		if errors.Is(err, pipeline.ErrGeneration) {
			writeError(w, http.StatusBadGateway, "answer generation unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to generate answer")
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
