package remote

import (
	"context"
	"strings"

	"github.com/vbelyaev/docgate/internal/core/domain"
)

// OCRClient talks to the text extraction service.
type OCRClient struct {
	client *Client
}

func NewOCRClient(client *Client) *OCRClient {
	return &OCRClient{client: client}
}

func (o *OCRClient) ExtractText(ctx context.Context, data []byte) (*domain.OCRResult, error) {
	request := map[string]any{"image": data}

	var response struct {
		Text            string  `json:"text"`
		WordCount       int     `json:"word_count"`
		ConfidenceScore float64 `json:"confidence_score"`
		Distribution    struct {
			High    int `json:"high"`
			Medium  int `json:"medium"`
			Low     int `json:"low"`
			VeryLow int `json:"very_low"`
		} `json:"confidence_distribution"`
	}
	if err := o.client.postJSON(ctx, "/v1/extract", request, &response, "ocr.extract"); err != nil {
		return nil, err
	}

	result := &domain.OCRResult{
		Text:            response.Text,
		WordCount:       response.WordCount,
		ConfidenceScore: response.ConfidenceScore,
		Distribution: domain.ConfidenceDistribution{
			High:    response.Distribution.High,
			Medium:  response.Distribution.Medium,
			Low:     response.Distribution.Low,
			VeryLow: response.Distribution.VeryLow,
		},
	}
	if result.WordCount == 0 && result.Text != "" {
		result.WordCount = len(strings.Fields(result.Text))
	}
	return result, nil
}
