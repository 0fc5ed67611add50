package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/marisolvega/callinsights-backend/pkg/config"
	apperrors "github.com/marisolvega/callinsights-backend/pkg/errors"
	"github.com/marisolvega/callinsights-backend/pkg/logger"
)

const listenPath = "/v1/listen"

// Client calls the Deepgram speech-to-text API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	defaults   Options
	logg       *logger.Logger
}

// Options control a single transcription request. Zero values fall back to
// the client defaults loaded from configuration.
type Options struct {
	Model          string
	Diarize        bool
	Punctuate      bool
	SmartFormat    bool
	Utterances     bool
	DetectLanguage bool
	Summarize      bool
}

func NewClient(cfg config.TranscriptionConfig, logg *logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("transcription api key is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("transcription base url is required")
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		defaults: Options{
			Model:          cfg.Model,
			Diarize:        cfg.Diarize,
			Punctuate:      cfg.Punctuate,
			SmartFormat:    cfg.SmartFormat,
			Utterances:     true,
			DetectLanguage: true,
			Summarize:      true,
		},
		logg: logg,
	}, nil
}

// Defaults returns the options the client was configured with.
func (c *Client) Defaults() Options {
	return c.defaults
}

// TranscribeURL submits a remote audio URL for transcription.
func (c *Client) TranscribeURL(ctx context.Context, audioURL string, opts Options) (*Response, error) {
	if audioURL == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "audio url is required")
	}

	payload, err := json.Marshal(map[string]string{"url": audioURL})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "encoding transcription request")
	}

	req, err := c.newRequest(ctx, opts, bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}
	return c.send(ctx, req)
}

// TranscribeBytes submits raw audio bytes with the given content type.
func (c *Client) TranscribeBytes(ctx context.Context, audio []byte, contentType string, opts Options) (*Response, error) {
	if len(audio) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "audio payload is empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := c.newRequest(ctx, opts, bytes.NewReader(audio), contentType)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, req)
}

func (c *Client) newRequest(ctx context.Context, opts Options, body io.Reader, contentType string) (*http.Request, error) {
	query := url.Values{}
	model := opts.Model
	if model == "" {
		model = c.defaults.Model
	}
	if model != "" {
		query.Set("model", model)
	}
	query.Set("diarize", strconv.FormatBool(opts.Diarize))
	query.Set("punctuate", strconv.FormatBool(opts.Punctuate))
	query.Set("smart_format", strconv.FormatBool(opts.SmartFormat))
	query.Set("utterances", strconv.FormatBool(opts.Utterances))
	query.Set("detect_language", strconv.FormatBool(opts.DetectLanguage))
	if opts.Summarize {
		query.Set("summarize", "v2")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+listenPath+"?"+query.Encode(), body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "building transcription request")
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", contentType)
	return req, nil
}

func (c *Client) send(ctx context.Context, req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return nil, apperrors.Wrap(apperrors.CodeTranscriptionTransient, err, "transcription request timed out")
		}
		return nil, apperrors.Wrap(apperrors.CodeTranscriptionTransient, err, "transcription request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.classify(ctx, resp)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeTranscriptionTransient, err, "decoding transcription response")
	}
	return &out, nil
}

// classify maps a non-200 response onto the error taxonomy the pipeline
// retries and aborts on.
func (c *Client) classify(ctx context.Context, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(body))
	if c.logg != nil {
		c.logg.Warn(ctx, fmt.Sprintf("transcription service returned %s", resp.Status))
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return apperrors.New(apperrors.CodeTranscriptionBadAudio, "transcription rejected the audio").WithDetails(detail)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.New(apperrors.CodeTranscriptionAuth, "transcription credentials rejected").WithDetails(detail)
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.New(apperrors.CodeTranscriptionTransient, "transcription service throttled the request").WithDetails(detail)
	case resp.StatusCode >= http.StatusInternalServerError:
		return apperrors.New(apperrors.CodeTranscriptionTransient, fmt.Sprintf("transcription service error %d", resp.StatusCode)).WithDetails(detail)
	default:
		return apperrors.New(apperrors.CodeTranscriptionTransient, fmt.Sprintf("unexpected transcription status %d", resp.StatusCode)).WithDetails(detail)
	}
}
