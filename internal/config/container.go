package config

import (
	"context"
	"fmt"
	"time"

	"smart-ocr-server/internal/detect"
	"smart-ocr-server/internal/domain"
	"smart-ocr-server/internal/pipeline"
	"smart-ocr-server/internal/recognize"
	"smart-ocr-server/internal/render"
	"smart-ocr-server/internal/service"
	"smart-ocr-server/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config            domain.Config
	Logger            domain.Logger
	Detector          *detect.Detector
	Renderer          domain.PageRenderer
	Backend           domain.RecognitionBackend
	Recognizer        domain.Recognizer
	Engine            *pipeline.Engine
	EventHub          *service.EventHub
	ConversionService domain.ConversionService
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context) (*Container, error) {
	config := NewConfig()
	appLogger := logger.NewLogger(config.GetLogLevel())

	// No flow-document converter ships by default; DOCX/ODT/RTF loads fail
	// with a tooling error until one is wired in.
	detector := detect.NewDetector(appLogger, nil)

	renderTimeout := time.Duration(config.GetRenderTimeoutSec()) * time.Second
	renderer := render.NewFitzRenderer(appLogger, config.GetRenderDPI(), renderTimeout)

	backend, err := newBackend(ctx, config, appLogger)
	if err != nil {
		return nil, err
	}
	recognizer := recognize.NewAdapter(backend, config.GetOCRPrompt(), appLogger)

	engine := pipeline.NewEngine(renderer, recognizer, appLogger)
	hub := service.NewEventHub(appLogger)
	conversionService := service.NewConversionService(
		detector,
		renderer,
		engine,
		hub,
		appLogger,
		config.GetDefaultBatchSize(),
	)

	return &Container{
		Config:            config,
		Logger:            appLogger,
		Detector:          detector,
		Renderer:          renderer,
		Backend:           backend,
		Recognizer:        recognizer,
		Engine:            engine,
		EventHub:          hub,
		ConversionService: conversionService,
	}, nil
}

func newBackend(ctx context.Context, config domain.Config, appLogger domain.Logger) (domain.RecognitionBackend, error) {
	switch config.GetOCRProvider() {
	case "vertex":
		backend, err := recognize.NewVertexBackend(ctx, config.GetGCPProject(), config.GetGCPLocation(), config.GetOCRModel(), appLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vertex backend: %w", err)
		}
		return backend, nil
	case "lmstudio":
		// Recognition is the pipeline's blocking point; give local models
		// plenty of time per page.
		return recognize.NewLMStudioBackend(config.GetLMStudioBaseURL(), config.GetOCRModel(), 5*time.Minute, appLogger), nil
	default:
		return nil, fmt.Errorf("unknown OCR provider %q", config.GetOCRProvider())
	}
}
