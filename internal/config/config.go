package config

import (
	"os"
	"strconv"

	"smart-ocr-server/internal/domain"
)

const defaultOCRPrompt = "Transcribe the contents of this image into plain text, and try to keep as close as possible to the original layout. Do not say anything else."

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort       string
	LogLevel         string
	OCRProvider      string
	OCRModel         string
	OCRPrompt        string
	LMStudioBaseURL  string
	GCPProject       string
	GCPLocation      string
	RenderDPI        float64
	RenderTimeoutSec int
	DefaultBatchSize int
}

// NewConfig creates a new configuration instance with default values
func NewConfig() domain.Config {
	return &AppConfig{
		// Cloud Run (and many PaaS) provide the listening port via PORT.
		// Keep SERVER_PORT for local/dev compatibility.
		ServerPort:       getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", "8080")),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		OCRProvider:      getEnvOrDefault("OCR_PROVIDER", "lmstudio"),
		OCRModel:         getEnvOrDefault("OCR_MODEL", "gemma-3-12b-it-qat"),
		OCRPrompt:        getEnvOrDefault("OCR_PROMPT", defaultOCRPrompt),
		LMStudioBaseURL:  getEnvOrDefault("LMSTUDIO_BASE_URL", "http://localhost:1234"),
		GCPProject:       getEnvOrDefault("GCP_PROJECT", ""),
		GCPLocation:      getEnvOrDefault("GCP_LOCATION", "us-central1"),
		RenderDPI:        getEnvFloatOrDefault("RENDER_DPI", 150),
		RenderTimeoutSec: getEnvIntOrDefault("RENDER_TIMEOUT_SEC", 30),
		DefaultBatchSize: getEnvIntOrDefault("DEFAULT_BATCH_SIZE", 10),
	}
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetOCRProvider returns the recognition backend provider name
func (c *AppConfig) GetOCRProvider() string {
	return c.OCRProvider
}

// GetOCRModel returns the recognition model name
func (c *AppConfig) GetOCRModel() string {
	return c.OCRModel
}

// GetOCRPrompt returns the fixed instruction prompt sent with each page
func (c *AppConfig) GetOCRPrompt() string {
	return c.OCRPrompt
}

// GetLMStudioBaseURL returns the OpenAI-compatible endpoint base URL
func (c *AppConfig) GetLMStudioBaseURL() string {
	return c.LMStudioBaseURL
}

// GetGCPProject returns the GCP project for the Vertex AI backend
func (c *AppConfig) GetGCPProject() string {
	return c.GCPProject
}

// GetGCPLocation returns the GCP location for the Vertex AI backend
func (c *AppConfig) GetGCPLocation() string {
	return c.GCPLocation
}

// GetRenderDPI returns the rasterization resolution
func (c *AppConfig) GetRenderDPI() float64 {
	return c.RenderDPI
}

// GetRenderTimeoutSec returns the per-page render timeout in seconds
func (c *AppConfig) GetRenderTimeoutSec() int {
	return c.RenderTimeoutSec
}

// GetDefaultBatchSize returns the batch size used when the caller supplies none
func (c *AppConfig) GetDefaultBatchSize() int {
	return c.DefaultBatchSize
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
