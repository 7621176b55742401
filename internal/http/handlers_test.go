package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"tesoreria/internal/services"
	"tesoreria/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	api := NewLedgerAPI(
		services.NewLedgerService(repo, nil),
		services.NewReportService(repo),
		services.NewProfileService(repo),
	)
	srv := NewServer(":0", api)
	ts := httptest.NewServer(srv.Server.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, userID, role string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
		req.Header.Set("X-User-Role", role)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func seedAccounts(t *testing.T, ts *httptest.Server, userID string) {
	t.Helper()
	for _, acc := range []map[string]string{
		{"type": "Ingreso", "name": "Diezmos"},
		{"type": "Egreso", "name": "Servicios"},
	} {
		resp := doRequest(t, ts, http.MethodPost, "/api/accounts", userID, "editor", acc)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed account %v: status %d", acc, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestMissingIdentity(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/api/transactions", "", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	seedAccounts(t, ts, "u1")

	resp := doRequest(t, ts, http.MethodPost, "/api/transactions", "u1", "editor", map[string]any{
		"type":         "Ingreso",
		"date":         "2025-03-10",
		"account":      "Diezmos",
		"amount_cents": 10000000,
		"description":  "Diezmo marzo",
		"cedula":       "1234567890",
		"nombres":      "Ana Torres",
	})
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("create status = %d: %s", resp.StatusCode, body)
	}
	created := decodeBody[transactionView](t, resp)
	if created.ID == "" || created.Amount != "$100.000" {
		t.Errorf("created = %+v, want id set and amount $100.000", created)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/transactions/"+created.ID, "u1", "editor", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	got := decodeBody[transactionView](t, resp)
	if got.Description != "Diezmo marzo" {
		t.Errorf("Description = %q", got.Description)
	}

	// Another editor cannot see the row.
	resp = doRequest(t, ts, http.MethodGet, "/api/transactions/"+created.ID, "u2", "editor", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-user get status = %d, want 404", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodDelete, "/api/transactions/"+created.ID, "u1", "editor", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	ts := newTestServer(t)
	seedAccounts(t, ts, "u1")

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{
			"zero amount",
			map[string]any{"type": "Egreso", "date": "2025-03-10", "account": "Servicios", "amount_cents": 0, "description": "x"},
			http.StatusUnprocessableEntity,
		},
		{
			"ingreso without cedula",
			map[string]any{"type": "Ingreso", "date": "2025-03-10", "account": "Diezmos", "amount_cents": 100, "description": "x", "nombres": "n"},
			http.StatusUnprocessableEntity,
		},
		{
			"unknown account",
			map[string]any{"type": "Egreso", "date": "2025-03-10", "account": "Nada", "amount_cents": 100, "description": "x"},
			http.StatusUnprocessableEntity,
		},
		{
			"future date",
			map[string]any{"type": "Egreso", "date": "2999-01-01", "account": "Servicios", "amount_cents": 100, "description": "x"},
			http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, ts, http.MethodPost, "/api/transactions", "u1", "editor", tt.body)
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestLectorIsReadOnly(t *testing.T) {
	ts := newTestServer(t)
	seedAccounts(t, ts, "u1")

	resp := doRequest(t, ts, http.MethodPost, "/api/transactions", "u1", "lector", map[string]any{
		"type": "Egreso", "date": "2025-03-10", "account": "Servicios", "amount_cents": 100, "description": "x",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("lector create status = %d, want 403", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/transactions", "u1", "lector", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("lector list status = %d, want 200", resp.StatusCode)
	}
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t)
	seedAccounts(t, ts, "u1")

	for _, body := range []map[string]any{
		{"type": "Ingreso", "date": "2025-03-10", "account": "Diezmos", "amount_cents": 10000000, "description": "Diezmo", "cedula": "1", "nombres": "Ana"},
		{"type": "Egreso", "date": "2025-03-12", "account": "Servicios", "amount_cents": 4000000, "description": "Luz"},
	} {
		resp := doRequest(t, ts, http.MethodPost, "/api/transactions", "u1", "editor", body)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed transaction: status %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := doRequest(t, ts, http.MethodGet, "/api/dashboard", "u1", "editor", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d", resp.StatusCode)
	}
	view := decodeBody[dashboardView](t, resp)
	if view.TotalIngresos != 10000000 || view.TotalEgresos != 4000000 || view.NetBalance != 6000000 {
		t.Errorf("totals = %d/%d/%d, want 10000000/4000000/6000000",
			view.TotalIngresos, view.TotalEgresos, view.NetBalance)
	}
	if view.NetBalanceFmt != "$60.000" {
		t.Errorf("NetBalanceFmt = %q, want $60.000", view.NetBalanceFmt)
	}
}

func TestPayerLookup(t *testing.T) {
	ts := newTestServer(t)
	seedAccounts(t, ts, "u1")

	resp := doRequest(t, ts, http.MethodPost, "/api/transactions", "u1", "editor", map[string]any{
		"type": "Ingreso", "date": "2025-03-10", "account": "Diezmos",
		"amount_cents": 100, "description": "d", "cedula": "777", "nombres": "Rosa Melano",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("seed status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Twice: second hit comes from the cache.
	for i := 0; i < 2; i++ {
		resp = doRequest(t, ts, http.MethodGet, "/api/payers?cedula=777", "u1", "editor", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("lookup %d status = %d", i, resp.StatusCode)
		}
		view := decodeBody[payerView](t, resp)
		if view.Nombres != "Rosa Melano" {
			t.Errorf("lookup %d nombres = %q, want Rosa Melano", i, view.Nombres)
		}
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/payers?cedula=000", "u1", "editor", nil)
	view := decodeBody[payerView](t, resp)
	if view.Nombres != "" {
		t.Errorf("unknown cedula nombres = %q, want empty", view.Nombres)
	}
}

func TestPayerLookupWithoutServer(t *testing.T) {
	// NewLedgerAPI must be usable on its own: the payer cache is part of
	// the API, not injected by server wiring.
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	api := NewLedgerAPI(
		services.NewLedgerService(repo, nil),
		services.NewReportService(repo),
		services.NewProfileService(repo),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/payers?cedula=123", nil)
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-User-Role", "editor")
	rec := httptest.NewRecorder()

	api.handleLookupPayer(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	view := decodeBody[payerView](t, rec.Result())
	if view.Nombres != "" {
		t.Errorf("nombres = %q, want empty for unseen cedula", view.Nombres)
	}
}

func TestReportDownload(t *testing.T) {
	ts := newTestServer(t)
	seedAccounts(t, ts, "u1")

	resp := doRequest(t, ts, http.MethodPost, "/api/transactions", "u1", "editor", map[string]any{
		"type": "Ingreso", "date": "2025-03-10", "account": "Diezmos",
		"amount_cents": 10000000, "description": "Diezmo marzo", "cedula": "1", "nombres": "Ana",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("seed status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, ts, http.MethodGet, "/api/reports?format=csv&month=03&year=2025", "u1", "editor", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("report status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	wantDisposition := fmt.Sprintf("attachment; filename=%q", "report_month_2025_03.csv")
	if cd := resp.Header.Get("Content-Disposition"); cd != wantDisposition {
		t.Errorf("Content-Disposition = %q, want %q", cd, wantDisposition)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Diezmo marzo") {
		t.Errorf("report body missing row:\n%s", body)
	}
}

func TestReportBadParams(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/api/reports?format=docx", "u1", "editor", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown format status = %d, want 400", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/reports?format=csv&month=03", "u1", "editor", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("month without year status = %d, want 400", resp.StatusCode)
	}
}

func TestProfileMirror(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/profile", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-User-Id", "editor-1")
	req.Header.Set("X-User-Role", "editor")
	req.Header.Set("X-User-Email", "tesorero@iglesia.local")
	req.Header.Set("X-User-Name", "Tesorero Principal")

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	p := decodeBody[profileView](t, resp)
	if p.UserID != "editor-1" || p.Email != "tesorero@iglesia.local" ||
		p.Username != "Tesorero Principal" || p.Role != "editor" {
		t.Fatalf("unexpected profile: %+v", p)
	}

	// Blank headers on later requests must not erase mirrored fields.
	resp = doRequest(t, ts, http.MethodGet, "/api/profile", "editor-1", "editor", nil)
	p = decodeBody[profileView](t, resp)
	if p.Email != "tesorero@iglesia.local" || p.Username != "Tesorero Principal" {
		t.Fatalf("mirror lost fields: %+v", p)
	}

	// Reports pick up the mirrored username as the profile label.
	resp = doRequest(t, ts, http.MethodGet, "/api/reports?format=print", "editor-1", "editor", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("report status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(body), "Tesorero Principal") {
		t.Errorf("report does not carry the mirrored username")
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp := doRequest(t, ts, http.MethodGet, path, "", "", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
	}
}
