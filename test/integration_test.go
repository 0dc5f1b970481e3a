//go:build integration

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mlucero/catering-orders/internal/audit"
	"github.com/mlucero/catering-orders/internal/catalog"
	"github.com/mlucero/catering-orders/internal/clients"
	"github.com/mlucero/catering-orders/internal/domain"
	"github.com/mlucero/catering-orders/internal/messaging"
	"github.com/mlucero/catering-orders/internal/orders"
)

func buildMux(t *testing.T, connStr string, producer *messaging.Producer) *http.ServeMux {
	t.Helper()

	db, err := OpenDB(connStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	productHandler := catalog.NewHandler(catalog.NewProductRepository(db), logger)
	clientHandler := clients.NewHandler(clients.NewClientRepository(db), logger)
	orderHandler := orders.NewHandler(orders.NewOrderRepository(db), producer, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", productHandler.HandleList)
	mux.HandleFunc("POST /api/products", productHandler.HandleCreate)
	mux.HandleFunc("PUT /api/products/{id}", productHandler.HandleUpdate)
	mux.HandleFunc("DELETE /api/products/{id}", productHandler.HandleDelete)
	mux.HandleFunc("GET /api/clients", clientHandler.HandleList)
	mux.HandleFunc("POST /api/clients", clientHandler.HandleCreate)
	mux.HandleFunc("PUT /api/clients/{id}", clientHandler.HandleUpdate)
	mux.HandleFunc("DELETE /api/clients/{id}", clientHandler.HandleDelete)
	mux.HandleFunc("GET /api/orders", orderHandler.HandleList)
	mux.HandleFunc("POST /api/orders", orderHandler.HandleCreate)
	mux.HandleFunc("GET /api/orders/{id}", orderHandler.HandleGet)
	mux.HandleFunc("PUT /api/orders/{id}", orderHandler.HandleUpdate)
	mux.HandleFunc("PUT /api/orders/{id}/payment", orderHandler.HandleUpdatePayment)
	mux.HandleFunc("DELETE /api/orders/{id}", orderHandler.HandleDelete)
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

const orderBody = `{
	"client_id": 1,
	"event_date": "2024-06-01",
	"delivery_date": "2024-06-01",
	"delivery_time": "18:00",
	"is_delivery_enabled": true,
	"delivery_address": "Av. Siempre Viva 742",
	"observations": ["note1"],
	"products_json": [{"id": 1, "qty": 2}],
	"subtotal": 100,
	"shipping": 10,
	"total_net": 110,
	"deposit": 50,
	"balance": 60
}`

func TestOrderLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	mux := buildMux(t, pg.ConnStr, nil)

	rec := do(t, mux, http.MethodPost, "/api/clients", `{"name":"Ana"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for client, got %d: %s", rec.Code, rec.Body.String())
	}
	var client domain.Client
	if err := json.NewDecoder(rec.Body).Decode(&client); err != nil {
		t.Fatalf("failed to decode client: %v", err)
	}
	if client.ID != 1 {
		t.Fatalf("expected client id 1, got %d", client.ID)
	}

	rec = do(t, mux, http.MethodPost, "/api/orders", orderBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for order, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID      int64  `json:"id"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	if created.ID == 0 || created.Message != "Order added successfully" {
		t.Fatalf("unexpected create response: %+v", created)
	}

	orderPath := fmt.Sprintf("/api/orders/%d", created.ID)

	rec = do(t, mux, http.MethodGet, orderPath, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var fetched map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}
	if string(fetched["anticipo_pagado"]) != "0" || string(fetched["pendiente_pagado"]) != "0" {
		t.Fatalf("expected both payment flags 0, got %s / %s",
			fetched["anticipo_pagado"], fetched["pendiente_pagado"])
	}
	var obs []any
	if err := json.Unmarshal(fetched["observations"], &obs); err != nil {
		t.Fatalf("failed to decode observations: %v", err)
	}
	if len(obs) != 1 || obs[0] != "note1" {
		t.Fatalf("observations were not preserved: %s", fetched["observations"])
	}

	rec = do(t, mux, http.MethodPut, orderPath+"/payment", `{"anticipo_pagado":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for payment update, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, mux, http.MethodGet, orderPath, "")
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}
	if string(fetched["anticipo_pagado"]) != "1" {
		t.Fatalf("expected anticipo_pagado 1, got %s", fetched["anticipo_pagado"])
	}
	if string(fetched["pendiente_pagado"]) != "0" {
		t.Fatalf("expected pendiente_pagado 0, got %s", fetched["pendiente_pagado"])
	}

	rec = do(t, mux, http.MethodGet, "/api/orders", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for list, got %d", rec.Code)
	}
	var summaries []map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 order in list, got %d", len(summaries))
	}
	if string(summaries[0]["client_name"]) != `"Ana"` {
		t.Fatalf("expected client_name Ana, got %s", summaries[0]["client_name"])
	}

	rec = do(t, mux, http.MethodDelete, orderPath, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for delete, got %d", rec.Code)
	}
	rec = do(t, mux, http.MethodGet, orderPath, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", rec.Code)
	}
}

func TestFullUpdatePreservesPaymentState(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	mux := buildMux(t, pg.ConnStr, nil)

	do(t, mux, http.MethodPost, "/api/clients", `{"name":"Ana"}`)
	do(t, mux, http.MethodPost, "/api/orders", orderBody)
	do(t, mux, http.MethodPut, "/api/orders/1/payment", `{"anticipo_pagado":1,"pendiente_pagado":1}`)

	rec := do(t, mux, http.MethodGet, "/api/orders/1", "")
	var before map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &before); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}

	updated := strings.Replace(orderBody, `"shipping": 10`, `"shipping": 25`, 1)
	rec = do(t, mux, http.MethodPut, "/api/orders/1", updated)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for update, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, mux, http.MethodGet, "/api/orders/1", "")
	var after map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &after); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}

	if string(after["shipping"]) != "25" {
		t.Fatalf("expected shipping 25, got %s", after["shipping"])
	}
	if string(after["anticipo_pagado"]) != "1" || string(after["pendiente_pagado"]) != "1" {
		t.Fatalf("payment flags were clobbered by full update: %s / %s",
			after["anticipo_pagado"], after["pendiente_pagado"])
	}
	if string(after["order_date"]) != string(before["order_date"]) {
		t.Fatalf("order_date changed on update: %s -> %s", before["order_date"], after["order_date"])
	}
}

func TestProductNameConflict(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	mux := buildMux(t, pg.ConnStr, nil)

	rec := do(t, mux, http.MethodPost, "/api/products", `{"name":"Tarta","price":8}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, mux, http.MethodPost, "/api/products", `{"name":"Tarta","price":9}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 for duplicate name, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "Product with this name already exists" {
		t.Fatalf("unexpected error message: %s", resp["error"])
	}
}

func TestMissingResources(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	mux := buildMux(t, pg.ConnStr, nil)

	for _, tc := range []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/orders/99", ""},
		{http.MethodDelete, "/api/orders/99", ""},
		{http.MethodPut, "/api/orders/99/payment", `{"anticipo_pagado":1}`},
		{http.MethodDelete, "/api/products/99", ""},
		{http.MethodDelete, "/api/clients/99", ""},
	} {
		rec := do(t, mux, tc.method, tc.path, tc.body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected status 404, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestOrderEventsReachAuditLog(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	brokers, cleanupKafka := SetupKafka(ctx, t)
	defer cleanupKafka()

	producer := messaging.NewProducer(brokers, messaging.OrderEventsTopic)
	defer func() { _ = producer.Close() }()

	mux := buildMux(t, pg.ConnStr, producer)

	auditDB, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open audit database: %v", err)
	}
	defer func() { _ = auditDB.Close() }()

	auditRepo := audit.NewAuditRepository(auditDB)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditHandler := audit.NewHandler(auditRepo, logger)

	consumer := messaging.NewConsumer(brokers, messaging.OrderEventsTopic, "order-audit-test")
	defer func() { _ = consumer.Close() }()

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	go func() {
		_ = consumer.Consume(consumerCtx, auditHandler.Handle)
	}()

	do(t, mux, http.MethodPost, "/api/clients", `{"name":"Ana"}`)
	rec := do(t, mux, http.MethodPost, "/api/orders", orderBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	do(t, mux, http.MethodPut, "/api/orders/1/payment", `{"anticipo_pagado":1}`)

	deadline := time.Now().Add(90 * time.Second)
	var entries []audit.Entry
	for time.Now().Before(deadline) {
		entries, err = auditRepo.ListByOrder(ctx, 1)
		if err != nil {
			t.Fatalf("failed to list audit entries: %v", err)
		}
		if len(entries) >= 2 {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	if len(entries) < 2 {
		t.Fatalf("expected at least 2 audit entries, got %d", len(entries))
	}

	actions := map[string]bool{}
	for _, entry := range entries {
		actions[entry.Action] = true
	}
	if !actions[string(domain.OrderActionCreated)] || !actions[string(domain.OrderActionPaymentUpdated)] {
		t.Fatalf("expected created and payment_updated actions, got %v", actions)
	}
}
