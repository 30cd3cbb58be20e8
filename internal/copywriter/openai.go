package copywriter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/shirley959/amazon-final/internal/infra"
)

const (
	defaultOpenAIModel   = "gpt-4o-mini"
	openAIDefaultTimeout = 30 * time.Second
)

// OpenAIOptions configures OpenAIWriter.
type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Fallback   Writer
	OnFallback func(reason string, err error)
	Logger     *infra.Logger
}

// OpenAIWriter asks a chat model for concept lines. Any failure is handed to
// the fallback writer and recorded as metadata["fallback_reason"].
type OpenAIWriter struct {
	client     openai.Client
	model      string
	fallback   Writer
	onFallback func(reason string, err error)
	logger     *infra.Logger
}

func NewOpenAIWriter(opts OpenAIOptions) (*OpenAIWriter, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: openAIDefaultTimeout}
	}
	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(1),
	}
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(base+"/"))
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewStaticWriter()
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.Discard()
	}
	return &OpenAIWriter{
		client:     openai.NewClient(clientOpts...),
		model:      coalesce(opts.Model, defaultOpenAIModel),
		fallback:   fallback,
		onFallback: opts.OnFallback,
		logger:     logger,
	}, nil
}

func (o *OpenAIWriter) Draft(ctx context.Context, brief Brief) (*Draft, error) {
	brief = brief.Normalized()
	if strings.TrimSpace(brief.ProductName) == "" {
		return nil, errors.New("copywriter: product name is required")
	}
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildUserPrompt(brief)),
		},
		Temperature: openai.Float(0.8),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return o.useFallback(ctx, brief, "chat_request", err)
	}
	if len(resp.Choices) == 0 {
		return o.useFallback(ctx, brief, "empty_choices", errors.New("no choices"))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return o.useFallback(ctx, brief, "empty_response", errors.New("empty response"))
	}
	draft := ParseConcepts(text, brief)
	draft.Provider = providerOpenAI
	draft.Metadata = map[string]string{"locale": brief.Locale, "model": o.model}
	if draft.Degraded {
		o.logger.Warn().Strs("issues", draft.Issues).Msg("copywriter: repaired model output")
	}
	return draft, nil
}

func (o *OpenAIWriter) useFallback(ctx context.Context, brief Brief, reason string, cause error) (*Draft, error) {
	if o.onFallback != nil {
		o.onFallback(reason, cause)
	}
	o.logger.Warn().Err(cause).Str("reason", reason).Msg("copywriter: using fallback")
	draft, err := o.fallback.Draft(ctx, brief)
	if err != nil {
		return nil, fmt.Errorf("copywriter: fallback after %s: %w", reason, err)
	}
	if draft.Metadata == nil {
		draft.Metadata = map[string]string{}
	}
	draft.Metadata["fallback_reason"] = reason
	return draft, nil
}

const systemPrompt = "You are a senior e-commerce copywriter and art director for marketplace product listings. " +
	"Reply with plain text only: one concept per line, formatted exactly as TITLE | SUBTITLE | IMAGE_PROMPT. " +
	"No numbering, no headings, no extra commentary."

func buildUserPrompt(brief Brief) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Write %d distinct marketing image concepts for %q.", brief.Count, brief.ProductName)
	if brief.Notes != "" {
		fmt.Fprintf(sb, " Selling points: %s.", brief.Notes)
	}
	if brief.Style != "" {
		fmt.Fprintf(sb, " Visual style: %s.", brief.Style)
	}
	fmt.Fprintf(sb, " Write TITLE and SUBTITLE in locale %q; write IMAGE_PROMPT in English for an image model.", brief.Locale)
	return sb.String()
}

var _ Writer = (*OpenAIWriter)(nil)
