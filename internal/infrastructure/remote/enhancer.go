package remote

import (
	"context"

	"github.com/vbelyaev/docgate/internal/core/domain"
)

// EnhancerClient talks to the LLM post-correction service.
type EnhancerClient struct {
	client *Client
}

func NewEnhancerClient(client *Client) *EnhancerClient {
	return &EnhancerClient{client: client}
}

func (e *EnhancerClient) Enhance(ctx context.Context, text string) (*domain.EnhancementResult, error) {
	request := map[string]any{"text": text}

	var response struct {
		EnhancedText string `json:"enhanced_text"`
		Corrections  []struct {
			Original   string  `json:"original"`
			Corrected  string  `json:"corrected"`
			Confidence float64 `json:"confidence"`
			Type       string  `json:"type"`
		} `json:"corrections"`
		TokensUsed int `json:"tokens_used"`
	}
	if err := e.client.postJSON(ctx, "/v1/enhance", request, &response, "enhance.text"); err != nil {
		return nil, err
	}

	result := &domain.EnhancementResult{
		EnhancedText: response.EnhancedText,
		TokensUsed:   response.TokensUsed,
	}
	for _, c := range response.Corrections {
		result.Corrections = append(result.Corrections, domain.Correction{
			Original:   c.Original,
			Corrected:  c.Corrected,
			Confidence: c.Confidence,
			Type:       c.Type,
		})
	}
	if result.EnhancedText == "" {
		result.EnhancedText = text
	}
	return result, nil
}
