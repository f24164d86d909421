package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vbelyaev/docgate/internal/core/domain"
	"github.com/vbelyaev/docgate/internal/observability/metrics"
)

type documentProcessor interface {
	Process(ctx context.Context, sub domain.Submission) (*domain.ProcessingResult, error)
}

type jobManager interface {
	SubmitAsync(ctx context.Context, sub domain.Submission) (*domain.Job, error)
	Status(ctx context.Context, jobID string) (*domain.Job, error)
	EstimateSeconds(sub domain.Submission) int
}

type reviewService interface {
	Queue(ctx context.Context, priority domain.ReviewPriority, limit, offset int) (*domain.ReviewQueuePage, error)
	Export(ctx context.Context) ([]byte, error)
	Record(ctx context.Context, documentID string) (*domain.HistoryRecord, error)
	Statistics(ctx context.Context) (*domain.HistoryStatistics, error)
}

type Router struct {
	processor documentProcessor
	jobs      jobManager
	review    reviewService
	metrics   *metrics.HTTPServerMetrics
	limiter   *clientRateLimiter
	service   string
}

func NewRouter(
	processor documentProcessor,
	jobs jobManager,
	review reviewService,
	m *metrics.HTTPServerMetrics,
	service string,
	rateLimitRPS float64,
	rateLimitBurst int,
) *Router {
	return &Router{
		processor: processor,
		jobs:      jobs,
		review:    review,
		metrics:   m,
		limiter:   newClientRateLimiter(rateLimitRPS, rateLimitBurst),
		service:   service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.HandleFunc("/v1/documents/process", rt.processSync)
	mux.HandleFunc("/v1/documents/process/async", rt.processAsync)
	mux.HandleFunc("/v1/jobs/", rt.jobStatus)
	mux.HandleFunc("/v1/review/queue", rt.reviewQueue)
	mux.HandleFunc("/v1/review/export", rt.reviewExport)
	mux.HandleFunc("/v1/history/stats", rt.historyStats)
	mux.HandleFunc("/v1/history/", rt.historyByID)

	handler := accessLogMiddleware(mux)
	handler = rt.metrics.Middleware(rt.service, handler)
	handler = rt.limiter.middleware(func() { rt.metrics.RecordRateLimited(rt.service) }, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type submissionRequest struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Content    []byte `json:"content_base64"`
	StorageKey string `json:"storage_key"`

	EnableOCR           *bool `json:"enable_ocr"`
	EnableEnhancement   *bool `json:"enable_enhancement"`
	EnablePreprocessing *bool `json:"enable_preprocessing"`

	ReturnFormat        string  `json:"return_format"`
	QualityThreshold    float64 `json:"quality_threshold"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

func (req submissionRequest) toSubmission(async bool) domain.Submission {
	enabled := func(flag *bool, fallback bool) bool {
		if flag == nil {
			return fallback
		}
		return *flag
	}
	returnFormat := domain.ReturnFormat(req.ReturnFormat)
	if req.ReturnFormat == "" {
		returnFormat = domain.ReturnFull
	}
	return domain.Submission{
		DocumentID: req.DocumentID,
		Filename:   req.Filename,
		Source: domain.SourceDescriptor{
			InlineData: req.Content,
			StorageKey: req.StorageKey,
		},
		EnableOCR:           enabled(req.EnableOCR, true),
		EnableEnhancement:   enabled(req.EnableEnhancement, false),
		EnablePreprocessing: enabled(req.EnablePreprocessing, false),
		ReturnFormat:        returnFormat,
		QualityThreshold:    req.QualityThreshold,
		ConfidenceThreshold: req.ConfidenceThreshold,
		Async:               async,
	}
}

func (rt *Router) processSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	sub, ok := decodeSubmission(w, r, false)
	if !ok {
		return
	}

	result, err := rt.processor.Process(r.Context(), sub)
	if err != nil {
		writeError(w, err)
		return
	}

	rt.metrics.RecordSubmission(rt.service, "sync")
	rt.metrics.RecordRouting(rt.service, string(result.Confidence.RoutingDecision), result.Confidence.FinalConfidence)
	writeJSON(w, http.StatusOK, result.Project(sub.ReturnFormat))
}

func (rt *Router) processAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	sub, ok := decodeSubmission(w, r, true)
	if !ok {
		return
	}

	job, err := rt.jobs.SubmitAsync(r.Context(), sub)
	if err != nil {
		if domain.IsKind(err, domain.ErrOverloaded) {
			rt.metrics.RecordOverloadRejection(rt.service)
		}
		writeError(w, err)
		return
	}

	rt.metrics.RecordSubmission(rt.service, "async")
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":                 "accepted",
		"job_id":                 job.ID,
		"estimated_time_seconds": rt.jobs.EstimateSeconds(sub),
	})
}

type jobStatusResponse struct {
	JobID              string             `json:"job_id"`
	Status             string             `json:"status"`
	ProgressPercentage int                `json:"progress_percentage"`
	Result             *domain.ResultView `json:"result,omitempty"`
	Error              *errorEnvelope     `json:"error,omitempty"`
}

func (rt *Router) jobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{
			ErrorCode: domain.CodeInvalidSource,
			Message:   "job id is required",
		})
		return
	}

	job, err := rt.jobs.Status(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}

	response := jobStatusResponse{
		JobID:              job.ID,
		Status:             string(job.State),
		ProgressPercentage: job.State.Progress(),
	}
	if job.Result != nil {
		view := job.Result.Project(job.Submission.ReturnFormat)
		response.Result = &view
	}
	if job.State == domain.JobFailed {
		response.Error = &errorEnvelope{
			ErrorCode: job.ErrorCode,
			Message:   job.ErrorMessage,
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func (rt *Router) reviewQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	priority := domain.ReviewPriority(query.Get("priority"))

	page, err := rt.review.Queue(r.Context(), priority, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (rt *Router) reviewExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	data, err := rt.review.Export(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="review-queue.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) historyStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	stats, err := rt.review.Statistics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) historyByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	documentID := strings.TrimPrefix(r.URL.Path, "/v1/history/")
	if documentID == "" || strings.Contains(documentID, "/") {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{
			ErrorCode: domain.CodeInvalidSource,
			Message:   "document id is required",
		})
		return
	}

	record, err := rt.review.Record(r.Context(), documentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func decodeSubmission(w http.ResponseWriter, r *http.Request, async bool) (domain.Submission, bool) {
	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{
			ErrorCode: domain.CodeInvalidSource,
			Message:   "invalid json body",
		})
		return domain.Submission{}, false
	}
	return req.toSubmission(async), true
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorEnvelope{
		ErrorCode: domain.CodeInvalidSource,
		Message:   "method not allowed",
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
