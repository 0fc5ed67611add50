package azblob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/marisolvega/callinsights-backend/pkg/config"
	apperrors "github.com/marisolvega/callinsights-backend/pkg/errors"
	"github.com/marisolvega/callinsights-backend/pkg/logger"
)

const (
	apiVersion  = "2021-08-06"
	pingTimeout = 5 * time.Second
)

// Client talks to the Azure Blob REST API using Shared Key authorization.
type Client struct {
	httpClient  *http.Client
	accountName string
	accountKey  []byte
	endpoint    string
	source      string
	destination string
	sasExpiry   time.Duration
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func closeBody(ctx context.Context, logg *logger.Logger, body io.Closer, msg string) {
	if body == nil {
		return
	}
	if err := body.Close(); err != nil && logg != nil {
		logg.Warn(ctx, msg)
	}
}

func NewClient(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	if cfg.AccountName == "" {
		return nil, errors.New("storage account name is required")
	}
	if cfg.AccountKey == "" {
		return nil, errors.New("storage account key is required")
	}
	if cfg.SourceContainer == "" || cfg.DestinationContainer == "" {
		return nil, errors.New("source and destination containers are required")
	}

	key, err := base64.StdEncoding.DecodeString(cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("decoding storage account key: %w", err)
	}

	suffix := cfg.EndpointSuffix
	if suffix == "" {
		suffix = "core.windows.net"
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		accountName: cfg.AccountName,
		accountKey:  key,
		endpoint:    fmt.Sprintf("https://%s.blob.%s", cfg.AccountName, suffix),
		source:      cfg.SourceContainer,
		destination: cfg.DestinationContainer,
		sasExpiry:   cfg.SASExpiry,
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("blob storage health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "blob storage client initialized")
	}

	return client, nil
}

func (c *Client) SourceContainer() string {
	if c == nil {
		return ""
	}
	return c.source
}

func (c *Client) DestinationContainer() string {
	if c == nil {
		return ""
	}
	return c.destination
}

func (c *Client) Close() error {
	return nil
}

// Ping lists a single blob from the source container to verify the account
// key and container are reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || len(c.accountKey) == 0 {
		return errors.New("blob storage client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	query := url.Values{}
	query.Set("restype", "container")
	query.Set("comp", "list")
	query.Set("maxresults", "1")

	resp, err := c.do(ctx, http.MethodGet, c.source, "", query, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if len(b) > 0 {
			return fmt.Errorf("blob container check failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
		}
		return fmt.Errorf("blob container check failed: %s", resp.Status)
	}

	return nil
}

// do issues a signed request against the account endpoint. The caller owns
// the response body.
func (c *Client) do(ctx context.Context, method, container, blob string, query url.Values, headers map[string]string) (*http.Response, error) {
	u := c.endpoint + "/" + url.PathEscape(container)
	if blob != "" {
		u += "/" + escapeBlobPath(blob)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-ms-version", apiVersion)
	req.Header.Set("x-ms-date", time.Now().UTC().Format(http.TimeFormat))
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	req.Header.Set("Authorization", c.authorize(req))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageUnavailable, err, "blob storage request failed")
	}
	return resp, nil
}

// authorize builds the SharedKey authorization header for the request.
func (c *Client) authorize(req *http.Request) string {
	contentLength := req.Header.Get("Content-Length")
	if contentLength == "0" {
		contentLength = ""
	}

	stringToSign := strings.Join([]string{
		req.Method,
		req.Header.Get("Content-Encoding"),
		req.Header.Get("Content-Language"),
		contentLength,
		req.Header.Get("Content-MD5"),
		req.Header.Get("Content-Type"),
		"", // Date is carried in x-ms-date
		req.Header.Get("If-Modified-Since"),
		req.Header.Get("If-Match"),
		req.Header.Get("If-None-Match"),
		req.Header.Get("If-Unmodified-Since"),
		req.Header.Get("Range"),
		c.canonicalizedHeaders(req) + c.canonicalizedResource(req.URL),
	}, "\n")

	return fmt.Sprintf("SharedKey %s:%s", c.accountName, c.sign(stringToSign))
}

func (c *Client) canonicalizedHeaders(req *http.Request) string {
	var names []string
	for name := range req.Header {
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, "x-ms-") {
			names = append(names, lower)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(":")
		b.WriteString(strings.TrimSpace(req.Header.Get(name)))
		b.WriteString("\n")
	}
	return b.String()
}

func (c *Client) canonicalizedResource(u *url.URL) string {
	var b strings.Builder
	b.WriteString("/")
	b.WriteString(c.accountName)
	b.WriteString(u.EscapedPath())

	query := u.Query()
	var names []string
	for name := range query {
		names = append(names, strings.ToLower(name))
	}
	sort.Strings(names)
	for _, name := range names {
		values := query[name]
		sort.Strings(values)
		b.WriteString("\n")
		b.WriteString(name)
		b.WriteString(":")
		b.WriteString(strings.Join(values, ","))
	}
	return b.String()
}

func (c *Client) sign(stringToSign string) string {
	mac := hmac.New(sha256.New, c.accountKey)
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// escapeBlobPath escapes each segment of a blob name while preserving the
// virtual directory separators.
func escapeBlobPath(blob string) string {
	segments := strings.Split(blob, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func classifyStatus(status int, operation string) error {
	if status == http.StatusNotFound {
		return apperrors.New(apperrors.CodeBlobNotFound, operation+": blob not found")
	}
	return apperrors.New(apperrors.CodeStorageUnavailable, fmt.Sprintf("%s: unexpected status %d", operation, status))
}
