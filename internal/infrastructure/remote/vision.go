package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/vbelyaev/docgate/internal/core/domain"
)

// VisionClient talks to the image analysis service for perceptual quality
// metrics and document preprocessing.
type VisionClient struct {
	client *Client
}

func NewVisionClient(client *Client) *VisionClient {
	return &VisionClient{client: client}
}

func (v *VisionClient) AssessQuality(ctx context.Context, data []byte) (domain.QualityMetrics, error) {
	request := map[string]any{"image": data}

	var response struct {
		Sharpness  float64 `json:"sharpness"`
		Contrast   float64 `json:"contrast"`
		Resolution float64 `json:"resolution"`
		Noise      float64 `json:"noise"`
	}
	if err := v.client.postJSON(ctx, "/v1/quality/assess", request, &response, "vision.assess"); err != nil {
		return domain.QualityMetrics{}, err
	}
	return domain.QualityMetrics{
		Sharpness:  response.Sharpness,
		Contrast:   response.Contrast,
		Resolution: response.Resolution,
		Noise:      response.Noise,
	}, nil
}

func (v *VisionClient) Preprocess(ctx context.Context, data []byte) ([]byte, error) {
	request := map[string]any{"image": data}

	var response struct {
		Image []byte `json:"image"`
	}
	if err := v.client.postJSON(ctx, "/v1/preprocess", request, &response, "vision.preprocess"); err != nil {
		return nil, err
	}
	if len(response.Image) == 0 {
		return nil, fmt.Errorf("vision.preprocess: %w", errors.New("empty preprocessed image"))
	}
	return response.Image, nil
}
