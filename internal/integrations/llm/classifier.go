package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	log "github.com/sirupsen/logrus"

	"github.com/emariqueo1/clasificador-salcobrand/internal/domain"
)

const (
	DefaultModel            = "claude-sonnet-4-20250514"
	DefaultMaxTokens        = 1500
	DefaultWebSearchMaxUses = 5
	DefaultTimeout          = 120 * time.Second
)

type Usage struct {
	InputTokens       int64
	OutputTokens      int64
	WebSearchRequests int64
}

func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

// Options configures a Classifier. Zero values fall back to the defaults.
type Options struct {
	APIKey           string
	Model            string
	MaxTokens        int64
	WebSearchMaxUses int64
	Timeout          time.Duration
	BaseURL          string
	HTTPClient       *http.Client
}

// Classifier asks Anthropic, with web search enabled, to classify products.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	client           anthropic.Client
	model            string
	maxTokens        int64
	webSearchMaxUses int64
	timeout          time.Duration
}

func NewClassifier(opts Options) *Classifier {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if strings.TrimSpace(opts.BaseURL) != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	c := &Classifier{
		client:           anthropic.NewClient(reqOpts...),
		model:            opts.Model,
		maxTokens:        opts.MaxTokens,
		webSearchMaxUses: opts.WebSearchMaxUses,
		timeout:          opts.Timeout,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.webSearchMaxUses <= 0 {
		c.webSearchMaxUses = DefaultWebSearchMaxUses
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c
}

func (c *Classifier) Model() string { return c.model }

func (c *Classifier) messageParams(product, manufacturer string) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Tools: []anthropic.ToolUnionParam{
			{OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
				MaxUses: anthropic.Int(c.webSearchMaxUses),
			}},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(product, manufacturer))),
		},
	}
}

// Classify makes a single attempt; callers decide whether to retry based on
// the error type.
func (c *Classifier) Classify(ctx context.Context, product, manufacturer string) (domain.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	message, err := c.client.Messages.New(ctx, c.messageParams(product, manufacturer))
	if err != nil {
		svcErr := &ExternalServiceError{Err: err}
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			svcErr.StatusCode = apiErr.StatusCode
		}
		log.Printf("llm anthropic error model=%s product=%q status=%d err=%v", c.model, product, svcErr.StatusCode, err)
		return domain.Result{}, svcErr
	}

	usage := Usage{
		InputTokens:       message.Usage.InputTokens,
		OutputTokens:      message.Usage.OutputTokens,
		WebSearchRequests: message.Usage.ServerToolUse.WebSearchRequests,
	}
	text := replyText(message.Content)
	log.Printf("llm anthropic response model=%s blocks=%d size=%d tokens_in=%d tokens_out=%d web_searches=%d stop=%s duration=%s",
		c.model, len(message.Content), len(text), usage.InputTokens, usage.OutputTokens,
		usage.WebSearchRequests, message.StopReason, time.Since(start).Round(time.Millisecond))

	result, err := ParseReply(text)
	if err != nil {
		log.Printf("llm anthropic parse error product=%q err=%v", product, err)
		return domain.Result{}, err
	}
	return result, nil
}
