package ai

import (
	"context"
	"errors"
	neturl "net/url"
	"strings"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"

	appcfg "github.com/reviewinsight/server/internal/config"
	"github.com/reviewinsight/server/internal/pkg/apperr"
)

// Request is one system turn plus one user turn sent at temperature 0.
type Request struct {
	Task      string
	Model     string
	APIKey    string
	System    string
	User      string
	MaxTokens int
}

// Completer sends a Request to a chat model and returns the reply text verbatim.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// NewCompleter picks the provider implementation named by cfg.Provider.
func NewCompleter(cfg appcfg.LLMConfig) (Completer, error) {
	switch normalizeProviderType(cfg.Provider) {
	case appcfg.ProviderOpenAI, "openai-compatible", "groq":
		return NewOpenAICompatible(cfg.Endpoint), nil
	case appcfg.ProviderAnthropic:
		return NewAnthropic(cfg.Endpoint), nil
	}
	return nil, apperr.Config("unsupported llm provider %q", cfg.Provider)
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}

// OpenAICompatible talks to any /chat/completions endpoint (Groq, OpenAI, vLLM...).
type OpenAICompatible struct {
	baseURL string
}

func NewOpenAICompatible(endpoint string) *OpenAICompatible {
	return &OpenAICompatible{baseURL: normalizeOpenAIBaseURL(endpoint)}
}

func (p *OpenAICompatible) Complete(ctx context.Context, req Request) (string, error) {
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(req.APIKey),
		openaioption.WithMaxRetries(0),
	}
	if p.baseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(p.baseURL))
	}
	client := openaiclient.NewClient(opts...)

	params := openaiclient.ChatCompletionNewParams{
		Model: openaiclient.ChatModel(req.Model),
		Messages: []openaiclient.ChatCompletionMessageParamUnion{
			openaiclient.SystemMessage(req.System),
			openaiclient.UserMessage(req.User),
		},
		Temperature: openaiclient.Float(0),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openaiclient.Int(int64(req.MaxTokens))
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openaiclient.Error
		if errors.As(err, &apiErr) {
			return "", apperr.Provider(apiErr.StatusCode, err, "%s: openai-compatible request failed", req.Task)
		}
		return "", apperr.Provider(0, err, "%s: openai-compatible request failed", req.Task)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.Provider(0, nil, "%s: empty choices in response", req.Task)
	}
	if resp.Choices[0].FinishReason == "length" {
		return "", apperr.Provider(0, nil, "%s: reply truncated at the token limit", req.Task)
	}
	return resp.Choices[0].Message.Content, nil
}

const anthropicDefaultMaxTokens = 4096

// Anthropic talks to the Messages API.
type Anthropic struct {
	baseURL string
}

func NewAnthropic(endpoint string) *Anthropic {
	base := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	// The shared default endpoint is an OpenAI-style URL; the SDK default applies instead.
	if strings.Contains(base, "/openai") {
		base = ""
	}
	return &Anthropic{baseURL: base}
}

func (p *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(req.APIKey),
		anthropicoption.WithMaxRetries(0),
	}
	if p.baseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(p.baseURL))
	}
	client := anthropicclient.NewClient(opts...)

	// The Messages API requires max_tokens.
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	message, err := client.Messages.New(ctx, anthropicclient.MessageNewParams{
		Model:     anthropicclient.Model(req.Model),
		MaxTokens: maxTokens,
		System: []anthropicclient.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropicclient.MessageParam{
			anthropicclient.NewUserMessage(anthropicclient.NewTextBlock(req.User)),
		},
		Temperature: anthropicclient.Float(0),
	})
	if err != nil {
		var apiErr *anthropicclient.Error
		if errors.As(err, &apiErr) {
			return "", apperr.Provider(apiErr.StatusCode, err, "%s: anthropic request failed", req.Task)
		}
		return "", apperr.Provider(0, err, "%s: anthropic request failed", req.Task)
	}
	if message.StopReason == anthropicclient.StopReasonMaxTokens {
		return "", apperr.Provider(0, nil, "%s: reply truncated at the token limit", req.Task)
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", apperr.Provider(0, nil, "%s: no text content in anthropic response", req.Task)
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		if path == "" {
			path = "/v1"
		} else {
			path += "/v1"
		}
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}

func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
