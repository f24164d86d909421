package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vbelyaev/docgate/internal/core/domain"
	"github.com/vbelyaev/docgate/internal/observability/metrics"
)

type processorFake struct {
	result *domain.ProcessingResult
	err    error
	got    domain.Submission
}

func (f *processorFake) Process(_ context.Context, sub domain.Submission) (*domain.ProcessingResult, error) {
	f.got = sub
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type jobManagerFake struct {
	job       *domain.Job
	submitErr error
	statusJob *domain.Job
	statusErr error
	estimate  int
}

func (f *jobManagerFake) SubmitAsync(_ context.Context, sub domain.Submission) (*domain.Job, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.job, nil
}

func (f *jobManagerFake) Status(_ context.Context, jobID string) (*domain.Job, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.statusJob, nil
}

func (f *jobManagerFake) EstimateSeconds(domain.Submission) int { return f.estimate }

type reviewFake struct {
	page      *domain.ReviewQueuePage
	exported  []byte
	record    *domain.HistoryRecord
	recordErr error
	stats     *domain.HistoryStatistics

	gotPriority domain.ReviewPriority
	gotLimit    int
	gotOffset   int
}

func (f *reviewFake) Queue(_ context.Context, priority domain.ReviewPriority, limit, offset int) (*domain.ReviewQueuePage, error) {
	f.gotPriority, f.gotLimit, f.gotOffset = priority, limit, offset
	return f.page, nil
}

func (f *reviewFake) Export(context.Context) ([]byte, error) { return f.exported, nil }

func (f *reviewFake) Record(context.Context, string) (*domain.HistoryRecord, error) {
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	return f.record, nil
}

func (f *reviewFake) Statistics(context.Context) (*domain.HistoryStatistics, error) {
	return f.stats, nil
}

func newTestRouter(processor *processorFake, jobs *jobManagerFake, review *reviewFake) http.Handler {
	return NewRouter(
		processor, jobs, review,
		metrics.NewHTTPServerMetrics("test"),
		"test", 1000, 1000,
	).Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 && strings.Contains(rec.Header().Get("Content-Type"), "json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(&processorFake{}, &jobManagerFake{}, &reviewFake{})

	rec, body := doJSON(t, handler, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["status"] != "healthy" || body["timestamp"] == "" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestProcessSyncReturnsProjection(t *testing.T) {
	processor := &processorFake{result: &domain.ProcessingResult{
		DocumentID: "doc-1",
		Format:     domain.FormatPNG,
		Confidence: domain.ConfidenceReport{
			RoutingDecision: domain.RoutePass,
			FinalConfidence: 88.5,
		},
		OCR: &domain.OCRResult{Text: "hello"},
	}}
	handler := newTestRouter(processor, &jobManagerFake{}, &reviewFake{})

	rec, body := doJSON(t, handler, http.MethodPost, "/v1/documents/process",
		`{"content_base64":"aGVsbG8=","return_format":"minimal"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if body["routing_decision"] != "pass" || body["final_confidence"] != 88.5 {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, present := body["quality"]; present {
		t.Fatalf("minimal projection must not carry quality block")
	}
	if processor.got.ReturnFormat != domain.ReturnMinimal {
		t.Fatalf("return format not forwarded: %s", processor.got.ReturnFormat)
	}
	if !processor.got.EnableOCR {
		t.Fatalf("extraction must default to enabled")
	}
}

func TestProcessSyncMapsFormatError(t *testing.T) {
	processor := &processorFake{err: domain.WrapError(domain.ErrFormatNotSupported, "resolve source", errors.New("bad magic"))}
	handler := newTestRouter(processor, &jobManagerFake{}, &reviewFake{})

	rec, body := doJSON(t, handler, http.MethodPost, "/v1/documents/process", `{"storage_key":"k"}`)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}
	if body["error_code"] != "FORMAT_NOT_SUPPORTED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestProcessSyncHidesInternalDetails(t *testing.T) {
	processor := &processorFake{err: errors.New("pq: connection refused at 10.0.0.5")}
	handler := newTestRouter(processor, &jobManagerFake{}, &reviewFake{})

	rec, body := doJSON(t, handler, http.MethodPost, "/v1/documents/process", `{"storage_key":"k"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if body["error_code"] != "INTERNAL" || body["message"] != "internal error" {
		t.Fatalf("internal details leaked: %v", body)
	}
}

func TestProcessAsyncAccepted(t *testing.T) {
	jobs := &jobManagerFake{
		job:      &domain.Job{ID: "job-1", State: domain.JobPending},
		estimate: 28,
	}
	handler := newTestRouter(&processorFake{}, jobs, &reviewFake{})

	rec, body := doJSON(t, handler, http.MethodPost, "/v1/documents/process/async",
		`{"storage_key":"scans/a.png","enable_enhancement":true}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if body["status"] != "accepted" || body["job_id"] != "job-1" {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["estimated_time_seconds"] != float64(28) {
		t.Fatalf("estimated_time_seconds = %v", body["estimated_time_seconds"])
	}
}

func TestProcessAsyncOverloaded(t *testing.T) {
	jobs := &jobManagerFake{submitErr: domain.WrapError(domain.ErrOverloaded, "submit async", errors.New("at limit"))}
	handler := newTestRouter(&processorFake{}, jobs, &reviewFake{})

	rec, body := doJSON(t, handler, http.MethodPost, "/v1/documents/process/async", `{"storage_key":"k"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if body["error_code"] != "OVERLOADED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestJobStatusShapes(t *testing.T) {
	cases := []struct {
		name         string
		job          *domain.Job
		wantStatus   string
		wantProgress float64
		wantError    bool
		wantResult   bool
	}{
		{
			name:         "pending",
			job:          &domain.Job{ID: "job-1", State: domain.JobPending},
			wantStatus:   "pending",
			wantProgress: 0,
		},
		{
			name:         "processing",
			job:          &domain.Job{ID: "job-1", State: domain.JobProcessing},
			wantStatus:   "processing",
			wantProgress: 50,
		},
		{
			name: "completed",
			job: &domain.Job{
				ID:    "job-1",
				State: domain.JobCompleted,
				Submission: domain.Submission{
					ReturnFormat: domain.ReturnMinimal,
				},
				Result: &domain.ProcessingResult{
					DocumentID: "doc-1",
					Confidence: domain.ConfidenceReport{RoutingDecision: domain.RoutePass},
				},
			},
			wantStatus:   "completed",
			wantProgress: 100,
			wantResult:   true,
		},
		{
			name: "failed",
			job: &domain.Job{
				ID:           "job-1",
				State:        domain.JobFailed,
				ErrorCode:    "TIMEOUT",
				ErrorMessage: "processing exceeded limit",
			},
			wantStatus:   "failed",
			wantProgress: 100,
			wantError:    true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestRouter(&processorFake{}, &jobManagerFake{statusJob: tc.job}, &reviewFake{})

			rec, body := doJSON(t, handler, http.MethodGet, "/v1/jobs/job-1", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if body["status"] != tc.wantStatus || body["progress_percentage"] != tc.wantProgress {
				t.Fatalf("unexpected body: %v", body)
			}
			if _, present := body["error"]; present != tc.wantError {
				t.Fatalf("error presence = %v, want %v", present, tc.wantError)
			}
			if _, present := body["result"]; present != tc.wantResult {
				t.Fatalf("result presence = %v, want %v", present, tc.wantResult)
			}
		})
	}
}

func TestJobStatusNotFound(t *testing.T) {
	jobs := &jobManagerFake{statusErr: domain.WrapError(domain.ErrNotFound, "fetch job", errors.New("missing"))}
	handler := newTestRouter(&processorFake{}, jobs, &reviewFake{})

	rec, body := doJSON(t, handler, http.MethodGet, "/v1/jobs/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body["error_code"] != "NOT_FOUND" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestReviewQueueForwardsFilters(t *testing.T) {
	review := &reviewFake{page: &domain.ReviewQueuePage{
		Documents: []domain.HistoryRecord{{DocumentID: "doc-1"}},
		Total:     9,
		Limit:     5,
		Offset:    5,
	}}
	handler := newTestRouter(&processorFake{}, &jobManagerFake{}, review)

	rec, body := doJSON(t, handler, http.MethodGet, "/v1/review/queue?priority=high&limit=5&offset=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if review.gotPriority != domain.PriorityHigh || review.gotLimit != 5 || review.gotOffset != 5 {
		t.Fatalf("filters not forwarded: %s/%d/%d", review.gotPriority, review.gotLimit, review.gotOffset)
	}
	if body["total"] != float64(9) {
		t.Fatalf("total = %v", body["total"])
	}
	docs, ok := body["documents"].([]any)
	if !ok || len(docs) != 1 {
		t.Fatalf("documents = %v", body["documents"])
	}
}

func TestReviewExportSetsAttachmentHeaders(t *testing.T) {
	review := &reviewFake{exported: []byte("xlsx-bytes")}
	handler := newTestRouter(&processorFake{}, &jobManagerFake{}, review)

	req := httptest.NewRequest(http.MethodGet, "/v1/review/export", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "review-queue.xlsx") {
		t.Fatalf("content disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if rec.Body.String() != "xlsx-bytes" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestHistoryByIDAndStats(t *testing.T) {
	review := &reviewFake{
		record: &domain.HistoryRecord{DocumentID: "doc-1", Status: domain.HistoryStatusPass},
		stats:  &domain.HistoryStatistics{TotalRecords: 3},
	}
	handler := newTestRouter(&processorFake{}, &jobManagerFake{}, review)

	rec, body := doJSON(t, handler, http.MethodGet, "/v1/history/doc-1", "")
	if rec.Code != http.StatusOK || body["document_id"] != "doc-1" {
		t.Fatalf("history lookup: status=%d body=%v", rec.Code, body)
	}

	rec, body = doJSON(t, handler, http.MethodGet, "/v1/history/stats", "")
	if rec.Code != http.StatusOK || body["total_records"] != float64(3) {
		t.Fatalf("history stats: status=%d body=%v", rec.Code, body)
	}
}

func TestHistoryByIDExpiredIsNotFound(t *testing.T) {
	review := &reviewFake{recordErr: domain.WrapError(domain.ErrNotFound, "fetch history record", errors.New("doc-1"))}
	handler := newTestRouter(&processorFake{}, &jobManagerFake{}, review)

	rec, body := doJSON(t, handler, http.MethodGet, "/v1/history/doc-1", "")
	if rec.Code != http.StatusNotFound || body["error_code"] != "NOT_FOUND" {
		t.Fatalf("status=%d body=%v", rec.Code, body)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	handler := newTestRouter(&processorFake{}, &jobManagerFake{}, &reviewFake{})

	rec, body := doJSON(t, handler, http.MethodPost, "/v1/documents/process", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body["error_code"] != "INVALID_SOURCE" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	handler := NewRouter(
		&processorFake{result: &domain.ProcessingResult{}},
		&jobManagerFake{},
		&reviewFake{},
		metrics.NewHTTPServerMetrics("test"),
		"test", 1, 1,
	).Handler()

	first := httptest.NewRequest(http.MethodPost, "/v1/documents/process", strings.NewReader(`{"storage_key":"k"}`))
	first.RemoteAddr = "10.0.0.1:1000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code == http.StatusTooManyRequests {
		t.Fatalf("first request must pass")
	}

	second := httptest.NewRequest(http.MethodPost, "/v1/documents/process", strings.NewReader(`{"storage_key":"k"}`))
	second.RemoteAddr = "10.0.0.1:1001"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("burst request status = %d, want 429", rec.Code)
	}

	health := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	health.RemoteAddr = "10.0.0.1:1002"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, health)
	if rec.Code != http.StatusOK {
		t.Fatalf("health probe must bypass the limiter, status = %d", rec.Code)
	}
}
