package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smart-ocr-server/internal/domain"
	apperrors "smart-ocr-server/pkg/errors"
)

type testLogger struct{}

func (testLogger) Info(msg string, fields ...interface{})             {}
func (testLogger) Error(msg string, err error, fields ...interface{}) {}
func (testLogger) Debug(msg string, fields ...interface{})            {}
func (testLogger) Warn(msg string, fields ...interface{})             {}

type mockConversionService struct {
	loadDocumentFunc func(ctx context.Context, path string) (*domain.DocumentInfo, error)
	startRunFunc     func(fromPage, toPage *int, batchSize int) (*domain.RunStatus, error)
	cancelRunFunc    func() error
	getPageFunc      func(ctx context.Context, index int) (image.Image, error)
	statusFunc       func() *domain.StatusSnapshot
	resultsFunc      func() string
	saveResultsFunc  func(path string) error
	subscribeFunc    func() (int, <-chan domain.Event)
	unsubscribeFunc  func(id int)
}

func (m *mockConversionService) LoadDocument(ctx context.Context, path string) (*domain.DocumentInfo, error) {
	return m.loadDocumentFunc(ctx, path)
}

func (m *mockConversionService) StartRun(fromPage, toPage *int, batchSize int) (*domain.RunStatus, error) {
	return m.startRunFunc(fromPage, toPage, batchSize)
}

func (m *mockConversionService) CancelRun() error {
	return m.cancelRunFunc()
}

func (m *mockConversionService) GetPage(ctx context.Context, index int) (image.Image, error) {
	return m.getPageFunc(ctx, index)
}

func (m *mockConversionService) Status() *domain.StatusSnapshot {
	return m.statusFunc()
}

func (m *mockConversionService) Results() string {
	return m.resultsFunc()
}

func (m *mockConversionService) SaveResults(path string) error {
	return m.saveResultsFunc(path)
}

func (m *mockConversionService) Subscribe() (int, <-chan domain.Event) {
	return m.subscribeFunc()
}

func (m *mockConversionService) Unsubscribe(id int) {
	if m.unsubscribeFunc != nil {
		m.unsubscribeFunc(id)
	}
}

func serve(svc domain.ConversionService, method, target string, body string) *httptest.ResponseRecorder {
	router := NewRouter(svc, testLogger{})
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := serve(&mockConversionService{}, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health body %q", rec.Body.String())
	}
}

func TestLoadDocument(t *testing.T) {
	svc := &mockConversionService{
		loadDocumentFunc: func(ctx context.Context, path string) (*domain.DocumentInfo, error) {
			return &domain.DocumentInfo{Path: path, FileType: domain.FileTypePDF, PageCount: 12}, nil
		},
	}

	rec := serve(svc, http.MethodPost, "/api/v1/documents", `{"path":"/tmp/doc.pdf"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var info domain.DocumentInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.PageCount != 12 || info.FileType != domain.FileTypePDF {
		t.Fatalf("unexpected body: %+v", info)
	}
}

func TestLoadDocument_EmptyPath(t *testing.T) {
	rec := serve(&mockConversionService{}, http.MethodPost, "/api/v1/documents", `{"path":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetDocument_NoneLoaded(t *testing.T) {
	svc := &mockConversionService{
		statusFunc: func() *domain.StatusSnapshot { return &domain.StatusSnapshot{} },
	}
	rec := serve(svc, http.MethodGet, "/api/v1/documents/current", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetPage(t *testing.T) {
	svc := &mockConversionService{
		getPageFunc: func(ctx context.Context, index int) (image.Image, error) {
			return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
		},
	}

	rec := serve(svc, http.MethodGet, "/api/v1/documents/current/pages/0", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %s", ct)
	}
}

func TestGetPage_NonIntegerIndex(t *testing.T) {
	rec := serve(&mockConversionService{}, http.MethodGet, "/api/v1/documents/current/pages/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStartRun(t *testing.T) {
	var gotFrom, gotTo *int
	var gotBatch int
	svc := &mockConversionService{
		startRunFunc: func(fromPage, toPage *int, batchSize int) (*domain.RunStatus, error) {
			gotFrom, gotTo, gotBatch = fromPage, toPage, batchSize
			return &domain.RunStatus{RunID: "r1", State: domain.RunStateRunning}, nil
		},
	}

	rec := serve(svc, http.MethodPost, "/api/v1/runs", `{"from_page":2,"to_page":5,"batch_size":3}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotFrom == nil || *gotFrom != 2 || gotTo == nil || *gotTo != 5 || gotBatch != 3 {
		t.Fatalf("request not forwarded: from=%v to=%v batch=%d", gotFrom, gotTo, gotBatch)
	}
}

func TestStartRun_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", apperrors.NewValidationError("no document loaded"), http.StatusBadRequest},
		{"conflict", apperrors.NewConflictError("a conversion is already in progress"), http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockConversionService{
				startRunFunc: func(fromPage, toPage *int, batchSize int) (*domain.RunStatus, error) {
					return nil, tc.err
				},
			}
			rec := serve(svc, http.MethodPost, "/api/v1/runs", `{}`)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
		})
	}
}

func TestCancelRun(t *testing.T) {
	svc := &mockConversionService{
		cancelRunFunc: func() error { return nil },
	}
	rec := serve(svc, http.MethodDelete, "/api/v1/runs/current", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
}

func TestCancelRun_NoActiveRun(t *testing.T) {
	svc := &mockConversionService{
		cancelRunFunc: func() error { return apperrors.NewNotFoundError("no conversion run is active") },
	}
	rec := serve(svc, http.MethodDelete, "/api/v1/runs/current", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetRun_IncludesResults(t *testing.T) {
	svc := &mockConversionService{
		statusFunc: func() *domain.StatusSnapshot {
			return &domain.StatusSnapshot{
				Run: &domain.RunStatus{RunID: "r1", State: domain.RunStateCompleted},
			}
		},
		resultsFunc: func() string { return "--- Page 1 ---\nHello\n" },
	}

	rec := serve(svc, http.MethodGet, "/api/v1/runs/current", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Run     domain.RunStatus `json:"run"`
		Results string           `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Run.RunID != "r1" || !strings.Contains(body.Results, "Hello") {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestGetRun_NoRun(t *testing.T) {
	svc := &mockConversionService{
		statusFunc: func() *domain.StatusSnapshot { return &domain.StatusSnapshot{} },
	}
	rec := serve(svc, http.MethodGet, "/api/v1/runs/current", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSaveResults_EmptyPath(t *testing.T) {
	rec := serve(&mockConversionService{}, http.MethodPost, "/api/v1/results/save", `{"path":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStreamEvents_WritesSSEFrames(t *testing.T) {
	events := make(chan domain.Event, 2)
	events <- domain.Event{Kind: domain.EventBatchCommitted, Text: "--- Page 1 ---\nHello\n", Progress: 1}
	events <- domain.Event{Kind: domain.EventRunFinished, Outcome: domain.RunStateCompleted}
	close(events)

	unsubscribed := false
	svc := &mockConversionService{
		subscribeFunc:   func() (int, <-chan domain.Event) { return 1, events },
		unsubscribeFunc: func(id int) { unsubscribed = true },
	}

	rec := serve(svc, http.MethodGet, "/api/v1/runs/current/events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %s", ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: batch_committed\n") {
		t.Fatalf("missing batch event frame: %q", body)
	}
	if !strings.Contains(body, "event: run_finished\n") {
		t.Fatalf("missing run finished frame: %q", body)
	}
	if !unsubscribed {
		t.Fatal("expected stream handler to unsubscribe on exit")
	}
}
