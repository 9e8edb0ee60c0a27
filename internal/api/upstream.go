package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/pbaille/thoughtboard/internal/domain"
	"github.com/pbaille/thoughtboard/internal/store"
)

// ThoughtStore is the storage behind the development upstream
type ThoughtStore interface {
	AddThought(thought, seed string) (*domain.Thought, error)
	Latest() (*domain.Thought, error)
	List() ([]domain.Thought, error)
}

// AddThoughtRequest is the request body for POST /thoughts
type AddThoughtRequest struct {
	Thought string `json:"thought"`
}

type upstreamHandler struct {
	store  ThoughtStore
	seed   string
	logger *log.Logger
}

// NewUpstreamHandler serves the thoughts API from a local store, for running
// the dashboard without the real generator
func NewUpstreamHandler(s ThoughtStore, seed string, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	h := &upstreamHandler{store: s, seed: seed, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /thoughts", h.listThoughts)
	mux.HandleFunc("POST /thoughts", h.addThought)
	mux.HandleFunc("GET /thoughts/latest", h.latestThought)
	mux.HandleFunc("GET /health", health)
	return mux
}

func (h *upstreamHandler) listThoughts(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *upstreamHandler) latestThought(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.Latest()
	if errors.Is(err, store.ErrEmpty) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No thoughts in history"})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *upstreamHandler) addThought(w http.ResponseWriter, r *http.Request) {
	var req AddThoughtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Thought) == "" {
		writeError(w, http.StatusBadRequest, "thought is required")
		return
	}

	t, err := h.store.AddThought(req.Thought, h.seed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Printf("New thought recorded: %s", truncate(t.Thought, 50))
	writeJSON(w, http.StatusCreated, t)
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
