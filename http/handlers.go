package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"gameshelf/catalog"
	"gameshelf/game"
	"gameshelf/store"
	"gameshelf/validation"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// Searcher looks games up in the external catalog.
type Searcher interface {
	Search(ctx context.Context, query string) ([]catalog.Result, error)
}

type Handlers struct {
	collection *game.Collection
	catalog    Searcher
}

func NewHandlers(collection *game.Collection, searcher Searcher) *Handlers {
	return &Handlers{
		collection: collection,
		catalog:    searcher,
	}
}

type errorResponse struct {
	Error   string                  `json:"error"`
	Details []validation.FieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// Game handlers
func (h *Handlers) ListGames(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts, err := game.ParseListOptions(q.Get("platform"), q.Get("sort"), q.Get("order"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	games, err := h.collection.List(r.Context(), opts)
	if err != nil {
		slog.Error("ListGames error", "error", err, "request_id", GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Failed to list games")
		return
	}

	writeJSON(w, http.StatusOK, games)
}

func (h *Handlers) CreateGame(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	newGame, err := validation.Parse(body)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:   "Invalid game data",
				Details: verr.Problems,
			})
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid game data")
		return
	}

	created, err := h.collection.Add(r.Context(), newGame)
	if err != nil {
		slog.Error("CreateGame error", "error", err, "request_id", GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Failed to create game")
		return
	}

	slog.Info("game added", "id", created.ID, "name", created.Name, "platform", created.Platform)
	writeJSON(w, http.StatusOK, created)
}

func (h *Handlers) DeleteGame(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid game ID")
		return
	}

	if err := h.collection.Remove(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Game not found")
			return
		}
		slog.Error("DeleteGame error", "id", id, "error", err, "request_id", GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Failed to delete game")
		return
	}

	slog.Info("game removed", "id", id)
	w.WriteHeader(http.StatusOK)
}

// Catalog handlers
func (h *Handlers) SearchCatalog(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(query)) < catalog.MinQueryLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Query parameter q must be at least %d characters", catalog.MinQueryLength))
		return
	}

	results, err := h.catalog.Search(r.Context(), query)
	if err != nil {
		slog.Error("catalog search failed", "query", query, "error", err, "request_id", GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
