package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotConfigured indicates no API key is configured for the provider
	ErrNotConfigured = errors.New("model provider not configured")
	// ErrAPICallFailed indicates the model API call failed
	ErrAPICallFailed = errors.New("model API call failed")
	// ErrInvalidResponse indicates an invalid response from the model API
	ErrInvalidResponse = errors.New("invalid model API response")
	// ErrUnsupportedProvider indicates an unrecognized model provider key
	ErrUnsupportedProvider = errors.New("unsupported model provider")
)

const (
	openAIBaseURL    = "https://api.openai.com/v1"
	anthropicBaseURL = "https://api.anthropic.com/v1"
	googleBaseURL    = "https://generativelanguage.googleapis.com/v1beta"

	defaultMaxTokens = 4096
)

// Keys holds the per-provider API keys
type Keys struct {
	OpenAI    string
	Anthropic string
	Google    string
}

// Client generates text against the configured model providers
type Client struct {
	keys       Keys
	httpClient *http.Client
}

// NewClient creates a new model Client instance
func NewClient(keys Keys, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		keys: keys,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GenerateText resolves the provider key and generates text for the
// prompt. An unknown provider key is an error.
func (c *Client) GenerateText(provider, model, prompt string) (string, error) {
	switch strings.ToLower(provider) {
	case "openai":
		return c.generateOpenAI(model, prompt)
	case "anthropic", "claude":
		return c.generateAnthropic(model, prompt)
	case "google", "gemini":
		return c.generateGoogle(model, prompt)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
}

// chatMessage is an OpenAI-style chat message
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *Client) generateOpenAI(model, prompt string) (string, error) {
	if c.keys.OpenAI == "" {
		return "", fmt.Errorf("%w: openai", ErrNotConfigured)
	}

	request := struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}

	var response struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := c.post(openAIBaseURL+"/chat/completions", map[string]string{
		"Authorization": "Bearer " + c.keys.OpenAI,
	}, request, &response); err != nil {
		return "", err
	}

	if response.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrAPICallFailed, response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return "", ErrInvalidResponse
	}

	return response.Choices[0].Message.Content, nil
}

func (c *Client) generateAnthropic(model, prompt string) (string, error) {
	if c.keys.Anthropic == "" {
		return "", fmt.Errorf("%w: anthropic", ErrNotConfigured)
	}

	request := struct {
		Model     string        `json:"model"`
		MaxTokens int           `json:"max_tokens"`
		Messages  []chatMessage `json:"messages"`
	}{
		Model:     model,
		MaxTokens: defaultMaxTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}

	var response struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := c.post(anthropicBaseURL+"/messages", map[string]string{
		"x-api-key":         c.keys.Anthropic,
		"anthropic-version": "2023-06-01",
	}, request, &response); err != nil {
		return "", err
	}

	if response.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrAPICallFailed, response.Error.Message)
	}

	for _, block := range response.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", ErrInvalidResponse
}

func (c *Client) generateGoogle(model, prompt string) (string, error) {
	if c.keys.Google == "" {
		return "", fmt.Errorf("%w: google", ErrNotConfigured)
	}

	type googlePart struct {
		Text string `json:"text"`
	}
	type googleContent struct {
		Parts []googlePart `json:"parts"`
	}

	request := struct {
		Contents []googleContent `json:"contents"`
	}{
		Contents: []googleContent{{Parts: []googlePart{{Text: prompt}}}},
	}

	var response struct {
		Candidates []struct {
			Content googleContent `json:"content"`
		} `json:"candidates"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", googleBaseURL, model, c.keys.Google)
	if err := c.post(url, nil, request, &response); err != nil {
		return "", err
	}

	if response.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrAPICallFailed, response.Error.Message)
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", ErrInvalidResponse
	}

	return response.Candidates[0].Content.Parts[0].Text, nil
}

// post sends a JSON request and decodes the JSON response
func (c *Client) post(url string, headers map[string]string, request, response interface{}) error {
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrAPICallFailed, resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, response); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return nil
}
