// Package openai provides an LLM-backed provider over any OpenAI-compatible
// chat completions API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	apperrors "github.com/kbukum/riskintel/errors"
	"github.com/kbukum/riskintel/provider"
	"github.com/kbukum/riskintel/version"
)

// Kind is the factory key for this provider.
const Kind = "openai"

// DefaultModel is used when the model option is unset.
const DefaultModel = openai.GPT4oMini

// Option keys read from provider.Config.Options.
const (
	OptAPIKey      = "api_key"
	OptBaseURL     = "base_url"
	OptModel       = "model"
	OptHealthCheck = "health_check"
)

// Provider answers requests with a chat completion and expects JSON content back.
type Provider struct {
	*provider.Base
	client *openai.Client
	model  string
	apiKey string
}

// New creates the provider. The client is built here; credentials are
// checked in Init.
func New(cfg provider.Config, httpClient *http.Client, opts ...provider.BaseOption) *Provider {
	if cfg.Kind == "" {
		cfg.Kind = Kind
	}
	apiKey := cfg.StringOption(OptAPIKey, "")
	clientCfg := openai.DefaultConfig(apiKey)
	if base := cfg.StringOption(OptBaseURL, ""); base != "" {
		clientCfg.BaseURL = base
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	clientCfg.HTTPClient = withUserAgent(httpClient, version.UserAgent("riskintel"))

	p := &Provider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.StringOption(OptModel, DefaultModel),
		apiKey: apiKey,
	}
	if cfg.BoolOption(OptHealthCheck, false) {
		opts = append(opts, provider.WithProbe(p.probe))
	}
	p.Base = provider.NewBase(cfg, provider.Capabilities{
		SupportedRequestTypes: provider.KnownRequestTypes(),
		Concurrent:            true,
	}, opts...)
	return p
}

// Factory adapts New to provider.Factory.
func Factory(cfg provider.Config) (provider.Provider, error) {
	return New(cfg, nil), nil
}

// Init fails with AUTH when no api key is configured; the provider then stays offline.
func (p *Provider) Init(_ context.Context) error {
	if strings.TrimSpace(p.apiKey) == "" {
		p.MarkOnline(false)
		return apperrors.Auth(p.ID(), "missing api key")
	}
	p.MarkOnline(true)
	return nil
}

// Complete sends one chat completion per request.
func (p *Provider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	return p.Execute(ctx, req, p.call)
}

func (p *Provider) call(ctx context.Context, req *provider.Request) (map[string]any, error) {
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, apperrors.InvalidInput("payload", err.Error())
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(req.Type)},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, p.classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.ServiceError(p.ID(), errors.New("empty completion"))
	}
	return decode(resp.Choices[0].Message.Content), nil
}

func (p *Provider) probe(ctx context.Context) bool {
	cfg := p.Config()
	ctx, cancel := p.Clock().WithTimeout(ctx, cfg.Timeout())
	defer cancel()
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// classify maps HTTP failures to the error taxonomy.
func (p *Provider) classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return err
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.Auth(p.ID(), err.Error()).WithCause(err)
	case http.StatusTooManyRequests:
		return apperrors.RateLimited(p.ID(), 0).WithCause(err)
	default:
		return apperrors.ServiceError(p.ID(), err).WithDetail("status", status)
	}
}

func systemPrompt(t provider.RequestType) string {
	task := map[provider.RequestType]string{
		provider.TypeCompromiseAnalysis: "Assess how likely the company described below is to be compromised. Return riskScore (0-100), riskBand and summary.",
		provider.TypeThreatContext:      "Describe the current threat context relevant to the company described below. Return threatLevel and context.",
		provider.TypeCompanyEnrichment:  "Enrich the company record below with publicly known attributes. Return the enriched fields.",
		provider.TypeRiskCommentary:     "Write a short risk commentary for the company described below. Return commentary and riskBand.",
	}[t]
	return "You are a business risk analyst. " + task + " Respond with a single JSON object."
}

func decode(content string) map[string]any {
	var out map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err == nil && out != nil {
		return out
	}
	return map[string]any{"text": content}
}

var _ provider.Provider = (*Provider)(nil)

func (p *Provider) String() string {
	return fmt.Sprintf("openai(%s, model=%s)", p.ID(), p.model)
}

type userAgentTransport struct {
	next http.RoundTripper
	ua   string
}

func (t userAgentTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("User-Agent", t.ua)
	return t.next.RoundTrip(r)
}

// withUserAgent returns a shallow copy of c that stamps every request.
func withUserAgent(c *http.Client, ua string) *http.Client {
	next := c.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	out := *c
	out.Transport = userAgentTransport{next: next, ua: ua}
	return &out
}
