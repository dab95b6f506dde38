package recognize

import (
	"context"
	"fmt"
	"os"
	"strings"

	"smart-ocr-server/internal/domain"

	"cloud.google.com/go/vertexai/genai"
)

// VertexBackend performs recognition with a Gemini multimodal model on
// Vertex AI. It returns the concatenated text parts as a bare payload, so
// the normalizer treats it as plain text.
type VertexBackend struct {
	client *genai.Client
	model  string
	logger domain.Logger
}

func NewVertexBackend(ctx context.Context, projectID, location, model string, logger domain.Logger) (*VertexBackend, error) {
	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex ai client: %w", err)
	}
	return &VertexBackend{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

func (b *VertexBackend) Recognize(ctx context.Context, imagePath, prompt string) ([]byte, error) {
	imageBytes, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged image: %w", err)
	}

	model := b.client.GenerativeModel(b.model)
	model.SetTemperature(0)

	resp, err := model.GenerateContent(ctx, genai.ImageData("png", imageBytes), genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini call failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from model")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return []byte(sb.String()), nil
}

// Close releases the underlying Vertex AI client.
func (b *VertexBackend) Close() error {
	return b.client.Close()
}
