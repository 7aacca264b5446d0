package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"voxnote/internal/model"
)

// PromptSource supplies user prompt-template overrides (the Prompts table).
// A nil source or missing key falls back to the built-in defaults.
type PromptSource interface {
	Prompts(ctx context.Context) (map[string]string, error)
}

// GeminiConfig configures the Gemini adapter.
type GeminiConfig struct {
	APIKey       string
	RouterModel  string
	ExtractModel string
}

// GeminiAdapter implements Adapter using Google's Gemini API.
type GeminiAdapter struct {
	client       *genai.Client
	routerModel  string
	extractModel string
	prompts      PromptSource
	log          *zap.Logger
}

// NewGeminiAdapter creates a Gemini-backed adapter.
func NewGeminiAdapter(ctx context.Context, cfg GeminiConfig, prompts PromptSource, log *zap.Logger) (*GeminiAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.RouterModel == "" {
		cfg.RouterModel = "gemini-2.5-flash"
	}
	if cfg.ExtractModel == "" {
		cfg.ExtractModel = "gemini-2.5-flash"
	}
	if log == nil {
		log = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiAdapter{
		client:       client,
		routerModel:  cfg.RouterModel,
		extractModel: cfg.ExtractModel,
		prompts:      prompts,
		log:          log,
	}, nil
}

// generate runs one completion. jsonMode requests a JSON response body.
func (a *GeminiAdapter) generate(ctx context.Context, modelName, system, user string, jsonMode bool) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0.2),
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	if jsonMode {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := a.client.Models.GenerateContent(ctx, modelName, genai.Text(user), cfg)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}

// generateJSON runs a completion and decodes the JSON body into out.
func (a *GeminiAdapter) generateJSON(ctx context.Context, modelName, system, user string, out interface{}) error {
	text, err := a.generate(ctx, modelName, system, user, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("bad JSON from model: %w", err)
	}
	return nil
}

func (a *GeminiAdapter) override(ctx context.Context, key, fallback string) string {
	if a.prompts == nil {
		return fallback
	}
	overrides, err := a.prompts.Prompts(ctx)
	if err != nil {
		a.log.Warn("reading prompt overrides failed", zap.Error(err))
		return fallback
	}
	if t, ok := overrides[key]; ok && strings.TrimSpace(t) != "" {
		return t
	}
	return fallback
}

func (a *GeminiAdapter) ClassifyIntent(ctx context.Context, text string, categories map[string]string) (model.Intent, error) {
	user := fillTemplate(a.override(ctx, RouterPromptKey, defaultRouterUser), map[string]string{
		"text":       text,
		"categories": formatCategories(categories),
	})

	var raw struct {
		Action   string `json:"action"`
		Category string `json:"category"`
		Query    string `json:"query"`
	}
	err := withRetry(ctx, a.log, "classify", func() error {
		return a.generateJSON(ctx, a.routerModel, routerSystem, user, &raw)
	})
	if err != nil {
		return model.Intent{Kind: model.IntentUnrecognized}, err
	}

	intent := model.Intent{
		Category: strings.TrimSpace(raw.Category),
		Query:    strings.TrimSpace(raw.Query),
	}
	switch strings.ToLower(strings.TrimSpace(raw.Action)) {
	case "add":
		intent.Kind = model.IntentAdd
	case "ask":
		intent.Kind = model.IntentAsk
	case "delete":
		intent.Kind = model.IntentDelete
	default:
		intent.Kind = model.IntentUnrecognized
	}
	return intent, nil
}

func (a *GeminiAdapter) ExtractFields(ctx context.Context, text string, columns []string, today string) (map[string]string, error) {
	user := fillTemplate(a.override(ctx, ExtractPromptKey, defaultExtractUser), map[string]string{
		"text":    text,
		"headers": strings.Join(columns, ", "),
		"today":   today,
	})

	var raw map[string]interface{}
	err := withRetry(ctx, a.log, "extract", func() error {
		return a.generateJSON(ctx, a.extractModel, extractSystem, user, &raw)
	})
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		if value == nil {
			fields[key] = ""
			continue
		}
		fields[key] = strings.TrimSpace(fmt.Sprintf("%v", value))
	}
	return fields, nil
}

func (a *GeminiAdapter) Restructure(ctx context.Context, text string) (*Restructured, error) {
	user := fillTemplate(thinkingUser, map[string]string{"text": text})

	var out Restructured
	err := withRetry(ctx, a.log, "restructure", func() error {
		return a.generateJSON(ctx, a.extractModel, thinkingSystem, user, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *GeminiAdapter) Answer(ctx context.Context, question string, corpus string) (string, error) {
	user := fillTemplate(answerUser, map[string]string{
		"question": question,
		"corpus":   corpus,
	})

	var answer string
	err := withRetry(ctx, a.log, "answer", func() error {
		var genErr error
		answer, genErr = a.generate(ctx, a.extractModel, answerSystem, user, false)
		return genErr
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}

func (a *GeminiAdapter) Digest(ctx context.Context, period string, stats string, notes []string) (string, error) {
	lines := make([]string, len(notes))
	for i, n := range notes {
		lines[i] = "- " + n
	}
	user := fillTemplate(digestUser, map[string]string{
		"period": period,
		"stats":  stats,
		"notes":  strings.Join(lines, "\n"),
	})

	var digest string
	err := withRetry(ctx, a.log, "digest", func() error {
		var genErr error
		digest, genErr = a.generate(ctx, a.extractModel, digestSystem, user, false)
		return genErr
	})
	if err != nil {
		return "", err
	}
	return digest, nil
}
