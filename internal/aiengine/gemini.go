package aiengine

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider is the default AI Engine provider, backed by the
// official Gemini SDK. It asks for a JSON response directly rather than
// parsing free text, mirroring the structured-output usage in
// original_source/server/ai_engine/engine.py.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider constructs a provider bound to apiKey and model. It
// does not contact the API until an operation is called.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("aiengine: gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) generateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("aiengine: gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("aiengine: gemini returned empty response")
	}
	return json.RawMessage(text), nil
}

func (p *GeminiProvider) ClassifyPage(ctx context.Context, domHTML string) (PageClassification, error) {
	prompt := classifyPagePrompt(domHTML)
	raw, err := p.generateJSON(ctx, prompt)
	if err != nil {
		return PageClassification{}, err
	}
	var out PageClassification
	if err := json.Unmarshal(raw, &out); err != nil {
		return PageClassification{}, fmt.Errorf("aiengine: decode classify_page: %w", err)
	}
	return out, nil
}

func (p *GeminiProvider) GenerateNavigationPlan(ctx context.Context, domHTML, obstructionType string, targetSchema map[string]string, priorAttempts []PriorAttempt) (NavigationPlan, error) {
	prompt := navigationPlanPrompt(domHTML, obstructionType, targetSchema, priorAttempts)
	raw, err := p.generateJSON(ctx, prompt)
	if err != nil {
		return NavigationPlan{}, err
	}
	var out NavigationPlan
	if err := json.Unmarshal(raw, &out); err != nil {
		return NavigationPlan{}, fmt.Errorf("aiengine: decode navigation_plan: %w", err)
	}
	return out, nil
}

func (p *GeminiProvider) ExtractStructured(ctx context.Context, domHTML string, schema map[string]string, sourceURL string) (ExtractionResult, error) {
	prompt := extractStructuredPrompt(domHTML, schema, sourceURL)
	raw, err := p.generateJSON(ctx, prompt)
	if err != nil {
		return ExtractionResult{}, err
	}
	var out ExtractionResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return ExtractionResult{}, fmt.Errorf("aiengine: decode extract_structured: %w", err)
	}
	return out, nil
}

func (p *GeminiProvider) RepairExtraction(ctx context.Context, partial []map[string]any, schema map[string]string, domHTML string) (ExtractionResult, error) {
	prompt := repairExtractionPrompt(partial, schema, domHTML)
	raw, err := p.generateJSON(ctx, prompt)
	if err != nil {
		return ExtractionResult{}, err
	}
	var out ExtractionResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return ExtractionResult{}, fmt.Errorf("aiengine: decode repair_extraction: %w", err)
	}
	return out, nil
}
