// Package genai is a minimal client for the Google Generative Language
// generateContent endpoint, covering exactly what the Mara relay needs:
// system instructions, multi-turn contents and function calling.
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the hosted API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// Config holds client settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string        // overridable for tests
	Timeout time.Duration // whole-request deadline; a hung call never blocks forever
}

// Client calls the generateContent endpoint.
type Client struct {
	http  *resty.Client
	model string
}

// NewClient builds a client. The timeout guards every request; callers may
// additionally cancel through the context.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	c := resty.New().
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", cfg.APIKey).
		SetTimeout(timeout)

	return &Client{http: c, model: cfg.Model}
}

// Content is one conversational turn.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a text, function-call or function-response fragment of a turn.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// FunctionCall is the model invoking a declared function.
type FunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// FunctionResponse reports a function result back to the model.
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// Schema is a JSON-schema fragment for function parameters.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// FunctionDeclaration describes one callable function.
type FunctionDeclaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *Schema `json:"parameters"`
}

// Tool groups function declarations.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

// Request is the generateContent request body.
type Request struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// GenerationConfig tunes sampling.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type response struct {
	Candidates []struct {
		Content Content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Reply is the parsed model answer.
type Reply struct {
	Text          string
	FunctionCalls []FunctionCall
	// Content is the raw candidate turn, suitable for appending to the
	// running conversation history.
	Content Content
}

// GenerateContent performs one non-streaming model call.
func (c *Client) GenerateContent(ctx context.Context, req Request) (*Reply, error) {
	var resp response
	r, err := c.http.R().
		SetContext(ctx).
		SetBody(&req).
		SetResult(&resp).
		SetError(&resp).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.model))
	if err != nil {
		return nil, fmt.Errorf("genai: request failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("genai: API error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	if r.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("genai: unexpected status %d: %s", r.StatusCode(), r.String())
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("genai: empty response")
	}

	content := resp.Candidates[0].Content
	reply := &Reply{Content: content}
	for _, p := range content.Parts {
		if p.Text != "" {
			reply.Text += p.Text
		}
		if p.FunctionCall != nil {
			reply.FunctionCalls = append(reply.FunctionCalls, *p.FunctionCall)
		}
	}
	return reply, nil
}

// TextContent builds a single-part turn.
func TextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{{Text: text}}}
}
