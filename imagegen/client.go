// Package imagegen calls the configured AI image API and turns a prompt
// plus optional source images into PNG bytes.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Mode selects the upstream API dialect.
const (
	ModeGeneric = "generic" // OpenAI-compatible chat completions
	ModeGemini  = "gemini"  // Google generateContent
)

// Options configures a Client.
type Options struct {
	Mode       string
	Model      string
	GenericURL string
	GeminiURL  string
	Keys       []string
	Timeout    time.Duration
	ProxyURL   string
	MaxRetries int
}

// Client talks to the image-generation backend. It is safe for
// concurrent use.
type Client struct {
	opts   Options
	client *http.Client
}

// NewClient builds a client from options. An invalid proxy URL is
// ignored rather than fatal, matching the best-effort proxy handling of
// the rest of the bot.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}

	transport := &http.Transport{}
	if opts.ProxyURL != "" {
		if proxy, err := url.Parse(opts.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxy)
		}
	}

	return &Client{
		opts: opts,
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
	}
}

// Generate submits the prompt and source images and returns the
// generated image bytes. Any upstream failure, including a response the
// parser cannot find an image in, is an ordinary error; the command
// layer refunds the request cost on it.
func (c *Client) Generate(ctx context.Context, images [][]byte, prompt string) ([]byte, error) {
	if len(c.opts.Keys) == 0 {
		return nil, fmt.Errorf("no API key configured for mode %s", c.opts.Mode)
	}

	var endpoint string
	var payload any
	headers := map[string]string{"Content-Type": "application/json"}

	if c.opts.Mode == ModeGemini {
		endpoint = fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
			strings.TrimRight(c.opts.GeminiURL, "/"), c.opts.Model, c.opts.Keys[0])
		payload = geminiPayload(images, prompt)
	} else {
		endpoint = c.opts.GenericURL
		headers["Authorization"] = "Bearer " + c.opts.Keys[0]
		payload = genericPayload(c.opts.Model, images, prompt)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("image API returned status %d: %s", resp.StatusCode, snippet)
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode image API response: %w", err)
	}

	imgURL, err := extractImageURL(&parsed)
	if err != nil {
		return nil, err
	}
	return c.Fetch(ctx, imgURL)
}

// Fetch resolves an image URL to bytes. data: URLs are decoded locally;
// http(s) URLs are downloaded with bounded retries.
func (c *Client) Fetch(ctx context.Context, imgURL string) ([]byte, error) {
	if strings.HasPrefix(imgURL, "data:") {
		return decodeDataURL(imgURL)
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, imgURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create download request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("download returned status %d", resp.StatusCode)
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return data, nil
	}

	return nil, fmt.Errorf("image download failed after %d attempts: %w", c.opts.MaxRetries+1, lastErr)
}

func genericPayload(model string, images [][]byte, prompt string) any {
	content := []map[string]any{
		{"type": "text", "text": prompt},
	}
	for _, img := range images {
		content = append(content, map[string]any{
			"type": "image_url",
			"image_url": map[string]string{
				"url": "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
			},
		})
	}

	return map[string]any{
		"model": model,
		"messages": []map[string]any{
			{"role": "system", "content": "You are an expert AI artist. Output only the image URL. Do not talk."},
			{"role": "user", "content": content},
		},
		"stream":     false,
		"max_tokens": 4000,
	}
}

func geminiPayload(images [][]byte, prompt string) any {
	parts := []map[string]any{
		{"text": "Generate a high quality image based on this description: " + prompt},
	}
	for _, img := range images {
		parts = append(parts, map[string]any{
			"inlineData": map[string]string{
				"mimeType": "image/png",
				"data":     base64.StdEncoding.EncodeToString(img),
			},
		})
	}
	return map[string]any{
		"contents": []map[string]any{{"parts": parts}},
	}
}

// apiResponse covers the three response shapes the backends produce:
// DALL-E style data lists, chat completion choices and Gemini
// candidates.
type apiResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Choices []struct {
		Message struct {
			Content  string          `json:"content"`
			ImageURL json.RawMessage `json:"image_url"`
			Images   []string        `json:"images"`
		} `json:"message"`
	} `json:"choices"`
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

var (
	markdownImageRe = regexp.MustCompile(`!\[.*?\]\((.*?)\)`)
	bareURLRe       = regexp.MustCompile(`https?://[^\s)]+`)
)

// extractImageURL walks the response in the same priority order the
// upstream models are known to use: data list first, then chat
// completion content, then Gemini candidates.
func extractImageURL(resp *apiResponse) (string, error) {
	if len(resp.Data) > 0 {
		item := resp.Data[0]
		if item.URL != "" {
			return item.URL, nil
		}
		if item.B64JSON != "" {
			return "data:image/png;base64," + item.B64JSON, nil
		}
	}

	if len(resp.Choices) > 0 {
		msg := resp.Choices[0].Message

		if msg.Content != "" {
			if m := markdownImageRe.FindStringSubmatch(msg.Content); m != nil {
				return m[1], nil
			}
			if m := bareURLRe.FindString(msg.Content); m != "" {
				return m, nil
			}
		}

		// Non-standard model variants stick the URL next to the content.
		if u := decodeImageURLField(msg.ImageURL); u != "" {
			return u, nil
		}
		if len(msg.Images) > 0 && msg.Images[0] != "" {
			return msg.Images[0], nil
		}

		if msg.Content == "" {
			return "", fmt.Errorf("image API returned empty content and no image data")
		}
	}

	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return fmt.Sprintf("data:%s;base64,%s", part.InlineData.MimeType, part.InlineData.Data), nil
			}
			if part.Text != "" {
				if m := bareURLRe.FindString(part.Text); m != "" {
					return m, nil
				}
			}
		}
	}

	return "", fmt.Errorf("no image URL found in API response")
}

// decodeImageURLField handles the image_url field being either a string
// or an {"url": ...} object depending on the model.
func decodeImageURLField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var asObject struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil {
		return asObject.URL
	}
	return ""
}

func decodeDataURL(dataURL string) ([]byte, error) {
	_, encoded, found := strings.Cut(dataURL, ";base64,")
	if !found {
		return nil, fmt.Errorf("unsupported data URL encoding")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode inline image: %w", err)
	}
	return data, nil
}
