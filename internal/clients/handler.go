package clients

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mlucero/catering-orders/internal/domain"
)

type clientStore interface {
	List(ctx context.Context) ([]domain.Client, error)
	Create(ctx context.Context, client *domain.Client) error
	Update(ctx context.Context, client *domain.Client) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type Handler struct {
	store  clientStore
	logger *slog.Logger
}

func NewHandler(store clientStore, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

type clientRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Email *string `json:"email"`
}

func (req *clientRequest) validate() error {
	if req.Name == nil || *req.Name == "" {
		return errors.New("missing required field: name")
	}
	return nil
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	clients, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list clients", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, clients)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	client := &domain.Client{
		Name:  *req.Name,
		Phone: req.Phone,
		Email: req.Email,
	}

	if err := h.store.Create(r.Context(), client); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			h.writeError(w, http.StatusConflict, "Client with this email already exists")
			return
		}
		h.logger.Error("failed to create client", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info("client created", "client_id", client.ID, "name", client.Name)
	h.writeJSON(w, http.StatusCreated, client)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}

	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	client := &domain.Client{
		ID:    id,
		Name:  *req.Name,
		Phone: req.Phone,
		Email: req.Email,
	}

	updated, err := h.store.Update(r.Context(), client)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			h.writeError(w, http.StatusConflict, "Client with this email already exists")
			return
		}
		h.logger.Error("failed to update client", "error", err, "client_id", id)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !updated {
		h.writeError(w, http.StatusNotFound, "Client not found")
		return
	}

	h.logger.Info("client updated", "client_id", id)
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Client updated successfully"})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}

	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete client", "error", err, "client_id", id)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		h.writeError(w, http.StatusNotFound, "Client not found")
		return
	}

	h.logger.Info("client deleted", "client_id", id)
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Client deleted successfully"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
