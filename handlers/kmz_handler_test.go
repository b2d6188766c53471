package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"kmz-server/models"
	"kmz-server/utils/errors"
)

type mockGenerator struct {
	generateFn func(ctx context.Context, campaignID string) (models.GeneratedArchive, error)
}

func (m *mockGenerator) Generate(ctx context.Context, campaignID string) (models.GeneratedArchive, error) {
	return m.generateFn(ctx, campaignID)
}

type mockRegistry struct {
	recorded []models.DownloadRecord
	recordFn func(rec models.DownloadRecord) error
	recentFn func(campaignID string, limit int) ([]models.DownloadRecord, error)
}

func (m *mockRegistry) Record(_ context.Context, rec models.DownloadRecord) error {
	m.recorded = append(m.recorded, rec)
	if m.recordFn != nil {
		return m.recordFn(rec)
	}
	return nil
}

func (m *mockRegistry) Recent(_ context.Context, campaignID string, limit int) ([]models.DownloadRecord, error) {
	return m.recentFn(campaignID, limit)
}

func setupRouter(t *testing.T, gen kmzGenerator, reg downloadRegistry, baseURL string) (*mux.Router, string) {
	t.Helper()
	dir := t.TempDir()
	h := NewKMZHandler(gen, reg, baseURL)
	r := NewRouter(h, RouterConfig{
		DownloadDir:    dir,
		AllowedOrigins: []string{"*"},
		HistoryEnabled: reg != nil,
	})
	return r, dir
}

func okGenerator(t *testing.T, wantID string) *mockGenerator {
	return &mockGenerator{
		generateFn: func(_ context.Context, campaignID string) (models.GeneratedArchive, error) {
			if campaignID != wantID {
				t.Fatalf("unexpected campaignID: %q", campaignID)
			}
			return models.GeneratedArchive{
				CampaignID: "CAMP1",
				Filename:   "registros_CAMP1_a1b2c3.kmz",
				Points:     3,
			}, nil
		},
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errors.APIError {
	t.Helper()
	var apiErr errors.APIError
	if err := json.Unmarshal(w.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("unmarshal error body %q: %v", w.Body.String(), err)
	}
	return apiErr
}

func TestGetKMZ_Success(t *testing.T) {
	r, _ := setupRouter(t, okGenerator(t, "CAMP1"), nil, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "http://kmz.local:8080/kmz?campana_id=CAMP1", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp) != 1 {
		t.Errorf("expected a single key, got %v", resp)
	}
	want := "http://kmz.local:8080/downloads/registros_CAMP1_a1b2c3.kmz"
	if resp["download_url"] != want {
		t.Errorf("expected %s, got %s", want, resp["download_url"])
	}
}

func TestGetKMZ_PassesRawCampaignID(t *testing.T) {
	r, _ := setupRouter(t, okGenerator(t, `"CAMP1"`), nil, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/kmz?campana_id=%22CAMP1%22", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestGetKMZ_ForwardedHeaders(t *testing.T) {
	r, _ := setupRouter(t, okGenerator(t, "CAMP1"), nil, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "http://10.0.0.5:8080/kmz?campana_id=CAMP1", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "maps.example.com, proxy.internal")
	req.Header.Set("X-Forwarded-Prefix", "/api")
	r.ServeHTTP(w, req)

	var resp models.DownloadDescriptor
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := "https://maps.example.com/api/downloads/registros_CAMP1_a1b2c3.kmz"
	if resp.DownloadURL != want {
		t.Errorf("expected %s, got %s", want, resp.DownloadURL)
	}
}

func TestGetKMZ_ConfiguredBaseURL(t *testing.T) {
	r, _ := setupRouter(t, okGenerator(t, "CAMP1"), nil, "https://files.example.org/")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/kmz?campana_id=CAMP1", nil)
	req.Header.Set("X-Forwarded-Host", "ignored.example.com")
	r.ServeHTTP(w, req)

	var resp models.DownloadDescriptor
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.DownloadURL != "https://files.example.org/downloads/registros_CAMP1_a1b2c3.kmz" {
		t.Errorf("unexpected url %s", resp.DownloadURL)
	}
}

func TestGetKMZ_MissingParam(t *testing.T) {
	gen := &mockGenerator{generateFn: func(context.Context, string) (models.GeneratedArchive, error) {
		t.Fatal("generator must not be called")
		return models.GeneratedArchive{}, nil
	}}
	r, _ := setupRouter(t, gen, nil, "")

	for _, target := range []string{"/kmz", "/kmz?campana_id=", "/kmz?campana_id=%20%20"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, w.Code)
		}
		if apiErr := decodeError(t, w); apiErr.Code != errors.CodeBadRequest {
			t.Errorf("%s: expected code %s, got %s", target, errors.CodeBadRequest, apiErr.Code)
		}
	}
}

func TestGetKMZ_QuotedEmptyParam(t *testing.T) {
	gen := &mockGenerator{generateFn: func(context.Context, string) (models.GeneratedArchive, error) {
		t.Fatal("generator must not be called")
		return models.GeneratedArchive{}, nil
	}}
	r, _ := setupRouter(t, gen, nil, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", `/kmz?campana_id=%22%22`, nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetKMZ_OptionsDoesNotGenerate(t *testing.T) {
	calls := 0
	gen := &mockGenerator{generateFn: func(context.Context, string) (models.GeneratedArchive, error) {
		calls++
		return models.GeneratedArchive{Filename: "f.kmz"}, nil
	}}
	reg := &mockRegistry{}
	r, dir := setupRouter(t, gen, reg, "")

	for _, origin := range []string{"", "https://app.example.com"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("OPTIONS", "/kmz?campana_id=X", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("origin %q: expected 204, got %d", origin, w.Code)
		}
		if w.Body.Len() != 0 {
			t.Errorf("origin %q: expected empty body, got %q", origin, w.Body.String())
		}
	}
	if calls != 0 {
		t.Errorf("expected no generation for OPTIONS, got %d calls", calls)
	}
	if len(reg.recorded) != 0 {
		t.Errorf("expected no recorded downloads, got %d", len(reg.recorded))
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no files written, found %d", len(entries))
	}
}

func TestGetKMZ_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", errors.NotFound("X"), http.StatusNotFound, errors.CodeNotFound},
		{"store", errors.StoreUnavailable(stderrors.New("timeout")), http.StatusServiceUnavailable, errors.CodeStoreUnavailable},
		{"archive", errors.ArchiveWriteFailed(stderrors.New("disk full")), http.StatusInternalServerError, errors.CodeArchiveWriteFailed},
		{"unknown", stderrors.New("boom"), http.StatusInternalServerError, errors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockGenerator{generateFn: func(context.Context, string) (models.GeneratedArchive, error) {
				return models.GeneratedArchive{}, tt.err
			}}
			reg := &mockRegistry{}
			r, _ := setupRouter(t, gen, reg, "")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/kmz?campana_id=X", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			apiErr := decodeError(t, w)
			if apiErr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, apiErr.Code)
			}
			if tt.wantCode == errors.CodeNotFound && !strings.Contains(apiErr.Message, "X") {
				t.Errorf("expected message to name the campaign, got %q", apiErr.Message)
			}
			if len(reg.recorded) != 0 {
				t.Errorf("expected nothing recorded on failure, got %d", len(reg.recorded))
			}
		})
	}
}

func TestGetKMZ_RecordsDownload(t *testing.T) {
	reg := &mockRegistry{}
	r, _ := setupRouter(t, okGenerator(t, "CAMP1"), reg, "https://maps.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/kmz?campana_id=CAMP1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(reg.recorded) != 1 {
		t.Fatalf("expected one recorded download, got %d", len(reg.recorded))
	}
	rec := reg.recorded[0]
	if rec.CampaignID != "CAMP1" || rec.Points != 3 || rec.Filename != "registros_CAMP1_a1b2c3.kmz" {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.URL != "https://maps.example.com/downloads/registros_CAMP1_a1b2c3.kmz" {
		t.Errorf("unexpected record url %s", rec.URL)
	}
}

func TestGetKMZ_RegistryFailureDoesNotFailRequest(t *testing.T) {
	reg := &mockRegistry{recordFn: func(models.DownloadRecord) error { return stderrors.New("redis down") }}
	r, _ := setupRouter(t, okGenerator(t, "CAMP1"), reg, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/kmz?campana_id=CAMP1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestGetHistory(t *testing.T) {
	reg := &mockRegistry{recentFn: func(campaignID string, limit int) ([]models.DownloadRecord, error) {
		if campaignID != "CAMP1" {
			t.Fatalf("unexpected campaignID %q", campaignID)
		}
		if limit != 5 {
			t.Fatalf("unexpected limit %d", limit)
		}
		return []models.DownloadRecord{{CampaignID: "CAMP1", Filename: "a.kmz"}, {CampaignID: "CAMP1", Filename: "b.kmz"}}, nil
	}}
	r, _ := setupRouter(t, okGenerator(t, "CAMP1"), reg, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/kmz/history?campana_id=%22CAMP1%22&limit=5", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp DownloadHistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 || len(resp.Downloads) != 2 || resp.CampaignID != "CAMP1" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestGetHistory_Errors(t *testing.T) {
	reg := &mockRegistry{recentFn: func(string, int) ([]models.DownloadRecord, error) {
		return nil, stderrors.New("redis down")
	}}
	r, _ := setupRouter(t, okGenerator(t, "CAMP1"), reg, "")

	tests := map[string]int{
		"/kmz/history":                        http.StatusBadRequest,
		"/kmz/history?campana_id=X&limit=abc": http.StatusBadRequest,
		"/kmz/history?campana_id=X&limit=-1":  http.StatusBadRequest,
		"/kmz/history?campana_id=X":           http.StatusServiceUnavailable,
	}
	for target, want := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
		if w.Code != want {
			t.Errorf("%s: expected %d, got %d", target, want, w.Code)
		}
	}
}

func TestGetHistory_NotMountedWithoutRegistry(t *testing.T) {
	r, _ := setupRouter(t, okGenerator(t, "CAMP1"), nil, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/kmz/history?campana_id=CAMP1", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t, okGenerator(t, "CAMP1"), nil, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"ok":true}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestDownloads(t *testing.T) {
	r, dir := setupRouter(t, okGenerator(t, "CAMP1"), nil, "")
	if err := os.WriteFile(filepath.Join(dir, "registros_CAMP1_a1b2c3.kmz"), []byte("PK\x03\x04"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/downloads/registros_CAMP1_a1b2c3.kmz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != kmzContentType {
		t.Errorf("expected %s, got %s", kmzContentType, ct)
	}
	if w.Body.String() != "PK\x03\x04" {
		t.Errorf("unexpected body %q", w.Body.String())
	}

	for _, target := range []string{"/downloads/missing.kmz", "/downloads/"} {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", target, w.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := setupRouter(t, okGenerator(t, "CAMP1"), nil, "")
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "kmz_http_requests_total") {
		t.Error("expected kmz_http_requests_total in metrics output")
	}
}
