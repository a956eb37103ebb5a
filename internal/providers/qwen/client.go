package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
)

// Options configures the DashScope Qwen client.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	Watermark  bool
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client performs HTTP calls to the DashScope multimodal image editing API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	watermark  bool
	httpClient *http.Client
	logger     *infra.Logger
}

// EditRequest captures the inputs for one multi-image edit.
type EditRequest struct {
	Prompt         string
	NegativePrompt string
	Images         []domain.EncodedImage
	RequestID      string
}

type generationRequest struct {
	Model      string           `json:"model"`
	Input      generationInput  `json:"input"`
	Parameters generationParams `json:"parameters"`
}

type generationInput struct {
	Messages []generationMessage `json:"messages"`
}

type generationMessage struct {
	Role    string              `json:"role"`
	Content []generationContent `json:"content"`
}

type generationContent struct {
	Image string `json:"image,omitempty"`
	Text  string `json:"text,omitempty"`
}

type generationParams struct {
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Watermark      *bool  `json:"watermark,omitempty"`
	N              int    `json:"n,omitempty"`
}

type generationResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
					Text  string `json:"text"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "qwen-image-edit-plus"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		watermark:  opts.Watermark,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Edit invokes the DashScope API once and returns the first edited image,
// downloaded and encoded in memory.
func (c *Client) Edit(ctx context.Context, req EditRequest) (domain.EncodedImage, error) {
	if !c.HasCredentials() {
		return domain.EncodedImage{}, fmt.Errorf("qwen: %w", domain.ErrMissingAPIKey)
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return domain.EncodedImage{}, errors.New("qwen: prompt is required")
	}
	if len(req.Images) == 0 {
		return domain.EncodedImage{}, errors.New("qwen: at least one image is required")
	}

	content := make([]generationContent, 0, len(req.Images)+1)
	for _, img := range req.Images {
		if img.IsZero() {
			return domain.EncodedImage{}, fmt.Errorf("qwen: %w", domain.ErrEmptyImage)
		}
		content = append(content, generationContent{Image: img.DataURI()})
	}
	content = append(content, generationContent{Text: prompt})

	watermark := c.watermark
	payload := generationRequest{
		Model: c.model,
		Input: generationInput{
			Messages: []generationMessage{{Role: "user", Content: content}},
		},
		Parameters: generationParams{
			NegativePrompt: strings.TrimSpace(req.NegativePrompt),
			Watermark:      &watermark,
			N:              1,
		},
	}

	endpoint := c.baseURL + "/services/aigc/multimodal-generation/generation"
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.EncodedImage{}, fmt.Errorf("qwen: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.EncodedImage{}, fmt.Errorf("qwen: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.EncodedImage{}, ctxErr
		}
		return domain.EncodedImage{}, &domain.ServiceError{Err: fmt.Errorf("qwen: http request: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.EncodedImage{}, &domain.ServiceError{Err: fmt.Errorf("qwen: read response: %w", err)}
	}

	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			return domain.EncodedImage{}, &domain.ServiceError{StatusCode: resp.StatusCode, Message: detail.Message}
		}
		return domain.EncodedImage{}, &domain.ServiceError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("qwen: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}

	var decoded generationResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return domain.EncodedImage{}, &domain.ServiceError{Err: fmt.Errorf("qwen: decode response: %w", err)}
	}
	if decoded.Code != "" {
		return domain.EncodedImage{}, &domain.ServiceError{Message: decoded.Message, Err: fmt.Errorf("qwen: %s", decoded.Code)}
	}
	imageURL := firstImageURL(decoded)
	if imageURL == "" {
		return domain.EncodedImage{}, &domain.ServiceError{Err: errors.New("qwen: empty image url")}
	}
	img, err := c.download(ctx, imageURL)
	if err != nil {
		return domain.EncodedImage{}, err
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("request_id", firstNonEmpty(req.RequestID, decoded.RequestID)).
		Str("url", imageURL).
		Int("bytes", len(img.Data)).
		Msg("qwen: edited image")
	return img, nil
}

func (c *Client) download(ctx context.Context, imageURL string) (domain.EncodedImage, error) {
	if strings.HasPrefix(strings.ToLower(imageURL), "data:") {
		img, err := domain.ParseDataURI(imageURL)
		if err != nil {
			return domain.EncodedImage{}, &domain.ServiceError{Err: fmt.Errorf("qwen: %w", err)}
		}
		return img, nil
	}
	parsed, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || parsed.Scheme == "" {
		return domain.EncodedImage{}, &domain.ServiceError{Err: fmt.Errorf("qwen: invalid image url: %s", imageURL)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return domain.EncodedImage{}, fmt.Errorf("qwen: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.EncodedImage{}, ctxErr
		}
		return domain.EncodedImage{}, &domain.ServiceError{Err: fmt.Errorf("qwen: download image: %w", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return domain.EncodedImage{}, &domain.ServiceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("qwen: download status %d", resp.StatusCode)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.EncodedImage{}, &domain.ServiceError{Err: fmt.Errorf("qwen: read image: %w", err)}
	}
	format := resp.Header.Get("Content-Type")
	if format == "" || format == "application/octet-stream" {
		format = http.DetectContentType(data)
	}
	return domain.NewEncodedImage(format, data), nil
}

func firstImageURL(resp generationResponse) string {
	for _, choice := range resp.Output.Choices {
		for _, content := range choice.Message.Content {
			if u := strings.TrimSpace(content.Image); u != "" {
				return u
			}
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
