package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vbelyaev/docgate/internal/core/domain"
	"github.com/vbelyaev/docgate/internal/infrastructure/resilience"
)

func TestAssessQualityDecodesMetrics(t *testing.T) {
	var capturedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		_, _ = w.Write([]byte(`{"sharpness":82.5,"contrast":80,"resolution":90,"noise":75}`))
	}))
	defer server.Close()

	vision := NewVisionClient(NewClient(server.URL, 0, nil))
	metrics, err := vision.AssessQuality(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("AssessQuality() error = %v", err)
	}
	if capturedPath != "/v1/quality/assess" {
		t.Fatalf("path = %s", capturedPath)
	}
	if metrics.Sharpness != 82.5 || metrics.Noise != 75 {
		t.Fatalf("unexpected metrics: %+v", metrics)
	}
}

func TestPreprocessSendsImageBase64(t *testing.T) {
	var capturedImage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		capturedImage, _ = payload["image"].(string)
		_, _ = w.Write([]byte(`{"image":"` + base64.StdEncoding.EncodeToString([]byte("cleaned")) + `"}`))
	}))
	defer server.Close()

	vision := NewVisionClient(NewClient(server.URL, 0, nil))
	improved, err := vision.Preprocess(context.Background(), []byte("raw"))
	if err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}
	if string(improved) != "cleaned" {
		t.Fatalf("improved = %q", improved)
	}
	if capturedImage != base64.StdEncoding.EncodeToString([]byte("raw")) {
		t.Fatalf("image not base64 encoded: %q", capturedImage)
	}
}

func TestPreprocessRejectsEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	vision := NewVisionClient(NewClient(server.URL, 0, nil))
	if _, err := vision.Preprocess(context.Background(), []byte("raw")); err == nil {
		t.Fatalf("expected error for empty preprocessed image")
	}
}

func TestExtractTextDecodesDistribution(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"text":"hello world",
			"word_count":2,
			"confidence_score":94.5,
			"confidence_distribution":{"high":2,"medium":0,"low":0,"very_low":0}
		}`))
	}))
	defer server.Close()

	ocr := NewOCRClient(NewClient(server.URL, 0, nil))
	result, err := ocr.ExtractText(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if result.ConfidenceScore != 94.5 || result.Distribution.High != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Distribution.QualityLabel() != "excellent" {
		t.Fatalf("label = %s, want excellent", result.Distribution.QualityLabel())
	}
}

func TestExtractTextCountsWordsWhenOmitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":"one two three","confidence_score":90}`))
	}))
	defer server.Close()

	ocr := NewOCRClient(NewClient(server.URL, 0, nil))
	result, err := ocr.ExtractText(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if result.WordCount != 3 {
		t.Fatalf("word count = %d, want 3", result.WordCount)
	}
}

func TestEnhanceFallsBackToInputText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"corrections":[{"original":"teh","corrected":"the","confidence":0.98,"type":"spelling"}],"tokens_used":12}`))
	}))
	defer server.Close()

	enhancer := NewEnhancerClient(NewClient(server.URL, 0, nil))
	result, err := enhancer.Enhance(context.Background(), "teh text")
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	if result.EnhancedText != "teh text" {
		t.Fatalf("expected fallback to input text, got %q", result.EnhancedText)
	}
	if len(result.Corrections) != 1 || result.Corrections[0].Corrected != "the" {
		t.Fatalf("corrections not decoded: %+v", result.Corrections)
	}
}

func TestPostJSONIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine crashed", http.StatusBadGateway)
	}))
	defer server.Close()

	ocr := NewOCRClient(NewClient(server.URL, 0, nil))
	_, err := ocr.ExtractText(context.Background(), []byte("img"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "engine crashed") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestPostJSONRetriesThroughExecutor(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"sharpness":50,"contrast":50,"resolution":50,"noise":50}`))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Policy{
		Retry: resilience.RetryPolicy{
			MaxAttempts:  3,
			InitialDelay: 1,
			MaxDelay:     2,
			Multiplier:   2,
		},
		Breaker: resilience.BreakerPolicy{Disabled: true},
	})
	vision := NewVisionClient(NewClient(server.URL, 0, executor))

	if _, err := vision.AssessQuality(context.Background(), []byte("img")); err != nil {
		t.Fatalf("AssessQuality() error = %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want retry then success", attempts)
	}
}

func TestExhaustedRetryableStatusSurfacesAsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Policy{
		Retry: resilience.RetryPolicy{
			MaxAttempts:  2,
			InitialDelay: 1,
			MaxDelay:     2,
			Multiplier:   2,
		},
		Breaker: resilience.BreakerPolicy{Disabled: true},
	})
	vision := NewVisionClient(NewClient(server.URL, 0, executor))

	_, err := vision.AssessQuality(context.Background(), []byte("img"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("persistent 503 must surface as temporary, got %v", err)
	}
}

func TestNonRetryableStatusWrapsNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad image", http.StatusBadRequest)
	}))
	defer server.Close()

	vision := NewVisionClient(NewClient(server.URL, 0, nil))
	_, err := vision.AssessQuality(context.Background(), []byte("img"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("400 response must not be marked temporary: %v", err)
	}
}
