package transcript

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used for persona extraction.
const DefaultModelName = "gemini-2.5-flash"

// DefaultModelTimeout bounds a single model invocation. A merge makes
// exactly one attempt; a timeout is treated as a full failure.
const DefaultModelTimeout = 60 * time.Second

// ChatMessage is one conversation turn handed to the model.
type ChatMessage struct {
	Role    string
	Content string
}

// Model is the language-model capability the merger calls. Complete sends
// the system instructions, the conversation, and a trailing directive, and
// returns the model's raw text response.
type Model interface {
	Complete(ctx context.Context, system string, messages []ChatMessage, directive string) (string, error)
}

// GeminiModel implements Model with the Gemini API.
type GeminiModel struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiModel creates the Gemini-backed model. Credentials come from the
// environment (GEMINI_API_KEY or application default credentials).
func NewGeminiModel(ctx context.Context, modelName string, timeout time.Duration) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("transcript: create genai client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModelName
	}
	if timeout <= 0 {
		timeout = DefaultModelTimeout
	}
	return &GeminiModel{client: client, model: modelName, timeout: timeout}, nil
}

// Complete implements Model.
func (m *GeminiModel) Complete(ctx context.Context, system string, messages []ChatMessage, directive string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(messages)+1)
	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role != "user" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: directive}},
	})

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Temperature:       genai.Ptr[float32](0.2),
		MaxOutputTokens:   1000,
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("transcript: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("transcript: empty response from model")
	}
	return text, nil
}
