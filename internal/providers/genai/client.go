package genai

import (
	"bytes"
	"context"
	"encoding/base64"
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

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client sends both photos to Gemini's generateContent endpoint and returns
// the first image the model produces. Without an API key it composes the
// photos locally instead.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// CompositeRequest carries the inputs for one generation.
type CompositeRequest struct {
	Prompt    string
	Childhood domain.EncodedImage
	Present   domain.EncodedImage
	RequestID string
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiGenerationConfig struct {
	CandidateCount     int      `json:"candidateCount,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; one without its own timeout is created because every
// call carries a context deadline.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("genai: invalid base url: %w", err)
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash-image"
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
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether remote calls are possible.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// GenerateComposite makes exactly one generation attempt. Remote failures are
// returned as *domain.ServiceError; there is no fallback once credentials are
// configured.
func (c *Client) GenerateComposite(ctx context.Context, req CompositeRequest) (domain.EncodedImage, error) {
	if err := ctx.Err(); err != nil {
		return domain.EncodedImage{}, err
	}
	if req.Childhood.IsZero() || req.Present.IsZero() {
		return domain.EncodedImage{}, fmt.Errorf("genai: %w", domain.ErrEmptyImage)
	}

	if !c.HasCredentials() {
		img, err := ComposeSideBySide(req.Childhood, req.Present)
		if err != nil {
			return domain.EncodedImage{}, &domain.ServiceError{Message: "The selected photos could not be decoded.", Err: err}
		}
		c.logger.Debug().
			Str("request_id", req.RequestID).
			Int("bytes", len(img.Data)).
			Msg("genai: composed synthetic image")
		return img, nil
	}

	return c.remoteGenerateComposite(ctx, req)
}

func (c *Client) remoteGenerateComposite(ctx context.Context, req CompositeRequest) (domain.EncodedImage, error) {
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				inlinePart(req.Childhood),
				inlinePart(req.Present),
				{Text: strings.TrimSpace(req.Prompt)},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			CandidateCount:     1,
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		return domain.EncodedImage{}, err
	}

	var text []string
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if t := strings.TrimSpace(part.Text); t != "" {
				text = append(text, t)
			}
			asset, err := c.decodeInlineAsset(ctx, part)
			if err != nil {
				return domain.EncodedImage{}, err
			}
			if asset.IsZero() {
				continue
			}
			c.logger.Debug().
				Str("request_id", req.RequestID).
				Str("model", c.model).
				Str("media_type", asset.MediaType).
				Int("bytes", len(asset.Data)).
				Msg("genai: generated remote image")
			return asset, nil
		}
	}

	if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
		return domain.EncodedImage{}, &domain.ServiceError{
			Message: fmt.Sprintf("The request was blocked by the generation service (%s).", response.PromptFeedback.BlockReason),
		}
	}
	if len(text) > 0 {
		return domain.EncodedImage{}, &domain.ServiceError{Message: strings.Join(text, " ")}
	}
	return domain.EncodedImage{}, &domain.ServiceError{Err: errors.New("genai: response contained no image")}
}

func inlinePart(img domain.EncodedImage) geminiPart {
	return geminiPart{InlineData: &geminiInlineData{
		MimeType: img.MediaType,
		Data:     base64.StdEncoding.EncodeToString(img.Data),
	}}
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("genai: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("genai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &domain.ServiceError{Err: fmt.Errorf("genai: invoke gemini: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return &domain.ServiceError{StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
		}
		return &domain.ServiceError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("genai: gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ServiceError{Err: fmt.Errorf("genai: decode gemini response: %w", err)}
	}
	return nil
}

func (c *Client) decodeInlineAsset(ctx context.Context, part geminiPart) (domain.EncodedImage, error) {
	if part.InlineData != nil && part.InlineData.Data != "" {
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return domain.EncodedImage{}, &domain.ServiceError{Err: fmt.Errorf("genai: decode inline data: %w", err)}
		}
		return domain.EncodedImage{MediaType: firstNonEmpty(part.InlineData.MimeType, http.DetectContentType(data)), Data: data}, nil
	}

	if part.FileData != nil && part.FileData.FileURI != "" {
		data, mime, err := c.downloadFile(ctx, part.FileData.FileURI)
		if err != nil {
			return domain.EncodedImage{}, err
		}
		return domain.EncodedImage{MediaType: firstNonEmpty(part.FileData.MimeType, mime), Data: data}, nil
	}

	return domain.EncodedImage{}, nil
}

func (c *Client) downloadFile(ctx context.Context, uri string) ([]byte, string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("genai: create download request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		return nil, "", &domain.ServiceError{Err: fmt.Errorf("genai: download file: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, "", &domain.ServiceError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("genai: download file status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
		}
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &domain.ServiceError{Err: fmt.Errorf("genai: read file: %w", err)}
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
