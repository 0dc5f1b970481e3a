package clients

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mlucero/catering-orders/internal/domain"
)

type fakeClientStore struct {
	clients map[int64]*domain.Client
	nextID  int64
}

func newFakeClientStore() *fakeClientStore {
	return &fakeClientStore{clients: map[int64]*domain.Client{}}
}

func (s *fakeClientStore) emailTaken(email *string, exclude int64) bool {
	if email == nil {
		return false
	}
	for id, c := range s.clients {
		if id != exclude && c.Email != nil && *c.Email == *email {
			return true
		}
	}
	return false
}

func (s *fakeClientStore) List(_ context.Context) ([]domain.Client, error) {
	clients := []domain.Client{}
	for _, c := range s.clients {
		clients = append(clients, *c)
	}
	return clients, nil
}

func (s *fakeClientStore) Create(_ context.Context, client *domain.Client) error {
	if s.emailTaken(client.Email, 0) {
		return ErrDuplicateEmail
	}
	s.nextID++
	client.ID = s.nextID
	stored := *client
	s.clients[client.ID] = &stored
	return nil
}

func (s *fakeClientStore) Update(_ context.Context, client *domain.Client) (bool, error) {
	if _, ok := s.clients[client.ID]; !ok {
		return false, nil
	}
	if s.emailTaken(client.Email, client.ID) {
		return false, ErrDuplicateEmail
	}
	stored := *client
	s.clients[client.ID] = &stored
	return true, nil
}

func (s *fakeClientStore) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := s.clients[id]; !ok {
		return false, nil
	}
	delete(s.clients, id)
	return true, nil
}

func newTestHandler(store clientStore) *Handler {
	return NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func clientRoutes(handler *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/clients", handler.HandleList)
	mux.HandleFunc("POST /api/clients", handler.HandleCreate)
	mux.HandleFunc("PUT /api/clients/{id}", handler.HandleUpdate)
	mux.HandleFunc("DELETE /api/clients/{id}", handler.HandleDelete)
	return mux
}

func doRequest(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
	return rec
}

func TestHandleCreateClient(t *testing.T) {
	t.Run("creates client with only a name", func(t *testing.T) {
		mux := clientRoutes(newTestHandler(newFakeClientStore()))

		rec := doRequest(mux, http.MethodPost, "/api/clients", `{"name":"Ana"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var got map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got["id"] != float64(1) || got["name"] != "Ana" {
			t.Errorf("unexpected client: %v", got)
		}
		if got["phone"] != nil || got["email"] != nil {
			t.Errorf("expected null phone and email, got %v", got)
		}
	})

	t.Run("rejects duplicate email with conflict", func(t *testing.T) {
		store := newFakeClientStore()
		mux := clientRoutes(newTestHandler(store))

		doRequest(mux, http.MethodPost, "/api/clients", `{"name":"Ana","email":"ana@example.com"}`)
		rec := doRequest(mux, http.MethodPost, "/api/clients", `{"name":"Otra Ana","email":"ana@example.com"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d", rec.Code)
		}
		if len(store.clients) != 1 {
			t.Errorf("expected a single row, got %d", len(store.clients))
		}
	})

	t.Run("allows multiple clients without email", func(t *testing.T) {
		store := newFakeClientStore()
		mux := clientRoutes(newTestHandler(store))

		doRequest(mux, http.MethodPost, "/api/clients", `{"name":"Ana"}`)
		rec := doRequest(mux, http.MethodPost, "/api/clients", `{"name":"Beto"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d", rec.Code)
		}
		if len(store.clients) != 2 {
			t.Errorf("expected 2 rows, got %d", len(store.clients))
		}
	})

	t.Run("rejects missing name", func(t *testing.T) {
		mux := clientRoutes(newTestHandler(newFakeClientStore()))

		rec := doRequest(mux, http.MethodPost, "/api/clients", `{"email":"x@example.com"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestHandleUpdateClient(t *testing.T) {
	t.Run("replaces all fields", func(t *testing.T) {
		store := newFakeClientStore()
		mux := clientRoutes(newTestHandler(store))
		doRequest(mux, http.MethodPost, "/api/clients", `{"name":"Ana","phone":"555-0100"}`)

		rec := doRequest(mux, http.MethodPut, "/api/clients/1", `{"name":"Ana María"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if store.clients[1].Name != "Ana María" {
			t.Errorf("expected name to change, got %s", store.clients[1].Name)
		}
		if store.clients[1].Phone != nil {
			t.Error("expected phone to be replaced with null")
		}
	})

	t.Run("returns 404 for unknown client", func(t *testing.T) {
		mux := clientRoutes(newTestHandler(newFakeClientStore()))

		rec := doRequest(mux, http.MethodPut, "/api/clients/8", `{"name":"Ana"}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("returns 409 when taking an existing email", func(t *testing.T) {
		mux := clientRoutes(newTestHandler(newFakeClientStore()))
		doRequest(mux, http.MethodPost, "/api/clients", `{"name":"Ana","email":"ana@example.com"}`)
		doRequest(mux, http.MethodPost, "/api/clients", `{"name":"Beto","email":"beto@example.com"}`)

		rec := doRequest(mux, http.MethodPut, "/api/clients/2", `{"name":"Beto","email":"ana@example.com"}`)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rec.Code)
		}
	})
}

func TestHandleDeleteClient(t *testing.T) {
	t.Run("deletes an existing client", func(t *testing.T) {
		store := newFakeClientStore()
		mux := clientRoutes(newTestHandler(store))
		doRequest(mux, http.MethodPost, "/api/clients", `{"name":"Ana"}`)

		rec := doRequest(mux, http.MethodDelete, "/api/clients/1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if len(store.clients) != 0 {
			t.Error("expected client to be removed")
		}
	})

	t.Run("returns 404 for unknown client", func(t *testing.T) {
		mux := clientRoutes(newTestHandler(newFakeClientStore()))

		rec := doRequest(mux, http.MethodDelete, "/api/clients/4", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}
