// Package llm talks to the Gemini generateContent API and provides the
// translators used for catalog descriptions.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/pokerjest/animeAggregator/internal/config"
	"github.com/pokerjest/animeAggregator/internal/metrics"
	"github.com/pokerjest/animeAggregator/internal/upstream"
)

const source = "llm"

var (
	ErrNotConfigured = errors.New("llm api key not configured")
	ErrEmptyPrompt   = errors.New("prompt is empty")
	ErrBlocked       = errors.New("response blocked by safety filters")
)

// Completion is one model answer.
type Completion struct {
	Text         string `json:"response"`
	Model        string `json:"model"`
	Provider     string `json:"provider"`
	FinishReason string `json:"finishReason,omitempty"`
}

type Completer interface {
	Complete(ctx context.Context, prompt, system string) (Completion, error)
}

type Client struct {
	client          *resty.Client
	endpoint        string
	model           string
	apiKey          string
	temperature     float64
	maxOutputTokens int
	metrics         metrics.Recorder
}

func NewClient(cfg config.LLMConfig, rec metrics.Recorder) *Client {
	c := resty.New()
	c.SetTimeout(cfg.Timeout)
	c.SetHeader("Content-Type", "application/json")

	return &Client{
		client:          c,
		endpoint:        strings.TrimRight(cfg.Endpoint, "/"),
		model:           cfg.Model,
		apiKey:          cfg.APIKey,
		temperature:     cfg.Temperature,
		maxOutputTokens: cfg.MaxOutputTokens,
		metrics:         metrics.OrNop(rec),
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

var safetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// Complete sends prompt, prefixed by the optional system instructions, and
// returns the first candidate's text.
func (c *Client) Complete(ctx context.Context, prompt, system string) (out Completion, err error) {
	if strings.TrimSpace(prompt) == "" {
		return Completion{}, ErrEmptyPrompt
	}
	if c.apiKey == "" {
		return Completion{}, ErrNotConfigured
	}

	start := time.Now()
	defer func() {
		c.metrics.ObserveUpstream(source, upstream.Outcome(err), time.Since(start))
	}()

	full := prompt
	if system = strings.TrimSpace(system); system != "" {
		full = system + "\n\n" + prompt
	}

	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: full}}}},
		GenerationConfig: generationConfig{
			Temperature:     c.temperature,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: c.maxOutputTokens,
		},
		SafetySettings: lo.Map(safetyCategories, func(cat string, _ int) safetySetting {
			return safetySetting{Category: cat, Threshold: "BLOCK_MEDIUM_AND_ABOVE"}
		}),
	}

	var result generateResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(req).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("%s/%s:generateContent", c.endpoint, c.model))
	if err != nil {
		return Completion{}, upstream.Unavailable(source, err)
	}

	if resp.IsError() {
		msg := resp.Status()
		if result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		log.Warn().Int("status", resp.StatusCode()).Str("model", c.model).Msg("llm request rejected")
		if resp.StatusCode() >= http.StatusInternalServerError || resp.StatusCode() == http.StatusTooManyRequests {
			return Completion{}, upstream.Unavailable(source, errors.New(msg))
		}
		return Completion{}, upstream.Malformed(source, errors.New(msg))
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return Completion{}, ErrBlocked
	}
	if len(result.Candidates) == 0 {
		return Completion{}, upstream.Malformed(source, errors.New("no candidates in response"))
	}

	candidate := result.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		return Completion{}, ErrBlocked
	}
	text := strings.Join(lo.Map(candidate.Content.Parts, func(p part, _ int) string { return p.Text }), "")
	if strings.TrimSpace(text) == "" {
		return Completion{}, upstream.Malformed(source, errors.New("empty candidate text"))
	}

	return Completion{
		Text:         strings.TrimSpace(text),
		Model:        c.model,
		Provider:     "gemini",
		FinishReason: candidate.FinishReason,
	}, nil
}
