package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ghoststation/internal/config"
	"ghoststation/internal/services"
	"ghoststation/internal/services/llm"
)

// ErrNotConfigured reports that no classifier credentials are available.
var ErrNotConfigured = llm.ErrMissingAPIKey

// Modality selects the prompt used for a request.
type Modality string

const (
	ModalityVisual Modality = "visual"
	ModalityAudio  Modality = "audio"
)

// Request is the payload sent for one event. Visual requests carry a frame;
// audio requests carry the transcript and spectral readings.
type Request struct {
	Modality             Modality
	Frame                []byte
	FrameMIMEType        string
	Transcript           string
	AnomalousFrequencies []float64
	DominantFrequency    float64
	AudioLevel           float64
	MagneticDelta        float64
}

// Verdict is the normalized classification of an event.
type Verdict struct {
	Label           string
	Confidence      float64
	Rationale       string
	Anomalous       bool
	Signature       bool
	ParanormalScore int
	Dimension       string
}

// Classifier turns an event payload into a verdict. Implementations are
// expected to fail: missing credentials, network errors and malformed output
// all come back as errors for the caller to record.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Verdict, error)
}

// completer is the subset of the llm client the classifier needs.
type completer interface {
	Configured() bool
	CompleteJSONWithImage(ctx context.Context, systemPrompt, userPrompt string, img *llm.Image) (string, error)
}

// LLM classifies events through an OpenRouter-compatible chat endpoint.
type LLM struct {
	client completer
}

// NewLLM builds a classifier from the classifier section.
func NewLLM(cfg *config.Config, opts ...llm.Option) *LLM {
	section := cfg.Classifier
	client := llm.NewClient(llm.Config{
		APIKey:         section.APIKey,
		BaseURL:        section.BaseURL,
		Model:          section.Model,
		Referer:        section.Referer,
		Title:          section.Title,
		TimeoutSeconds: section.TimeoutSeconds,
	}, opts...)
	return &LLM{client: client}
}

// Configured reports whether credentials are present.
func (c *LLM) Configured() bool {
	return c != nil && c.client != nil && c.client.Configured()
}

// Classify implements Classifier.
func (c *LLM) Classify(ctx context.Context, req Request) (Verdict, error) {
	if !c.Configured() {
		return Verdict{}, ErrNotConfigured
	}

	var (
		system, user string
		img          *llm.Image
	)
	switch req.Modality {
	case ModalityVisual:
		if len(req.Frame) == 0 {
			return Verdict{}, services.Wrap(services.ErrValidation, "classifier", "build request", "visual request without frame", nil)
		}
		mimeType := strings.TrimSpace(req.FrameMIMEType)
		if mimeType == "" {
			mimeType = http.DetectContentType(req.Frame)
		}
		system = VisualSystemPrompt
		user = visualUserPrompt(req)
		img = &llm.Image{MIMEType: mimeType, Data: req.Frame}
	case ModalityAudio:
		system = AudioSystemPrompt
		user = audioUserPrompt(req)
	default:
		return Verdict{}, services.Wrap(services.ErrValidation, "classifier", "build request", fmt.Sprintf("unknown modality %q", req.Modality), nil)
	}

	content, err := c.client.CompleteJSONWithImage(ctx, system, user, img)
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			return Verdict{}, ErrNotConfigured
		}
		return Verdict{}, services.Wrap(services.ErrExternalTool, "classifier", "complete", "classification request failed", err)
	}
	verdict, err := parseVerdict(content)
	if err != nil {
		return Verdict{}, services.Wrap(services.ErrExternalTool, "classifier", "parse", "malformed classification", err)
	}
	return verdict, nil
}
