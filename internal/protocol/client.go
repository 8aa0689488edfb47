// Package protocol implements the HTTP exchange with the recommendation server.
// This file provides the concrete Transport: JSON and multipart POSTs whose
// non-2xx responses are surfaced as text for the normalizer to judge.
package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/xperiencelabs/archat/internal/errors"
	"github.com/xperiencelabs/archat/internal/interfaces"
	"github.com/xperiencelabs/archat/internal/logging"
)

const component = "protocol"

// Client implements interfaces.Transport over net/http
type Client struct {
	httpClient *http.Client
	auth       *interfaces.AuthConfig
	userAgent  string
	logger     *logging.Logger

	mutex sync.Mutex
	stats ConnectionStatistics
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAuth attaches credentials sent with every request
func WithAuth(auth *interfaces.AuthConfig) Option {
	return func(c *Client) {
		c.auth = auth
	}
}

// WithLogger replaces the component logger
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a transport with connection pooling and a bounded dial timeout.
// Request deadlines come from the caller's context.
func NewClient(opts ...Option) *Client {
	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 2,
		},
	}

	client := &Client{
		httpClient: httpClient,
		userAgent:  fmt.Sprintf("archat/%s", ClientVersion),
		logger:     logging.GetProtocolLogger(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// PostJSON sends body as JSON and returns the response text
func (c *Client) PostJSON(ctx context.Context, url string, body any) (string, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return "", apperrors.NewValidationError(component).
				WithMessage("failed to marshal request payload").
				WithOperation("post_json").
				WithCause(err).
				Build()
		}
		payload = data
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", c.wrapRequestError("post_json", url, err)
	}
	c.setStandardHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}

	return c.execute(req, int64(len(payload)))
}

// PostMultipart sends file as the single part of a multipart/form-data request
func (c *Client) PostMultipart(ctx context.Context, url string, file interfaces.MultipartFile) (string, error) {
	var buf bytes.Buffer
	contentType, err := writeMultipart(&buf, file)
	if err != nil {
		return "", apperrors.NewValidationError(component).
			WithMessage("failed to encode multipart body").
			WithOperation("post_multipart").
			WithCause(err).
			Build()
	}
	size := int64(buf.Len())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", c.wrapRequestError("post_multipart", url, err)
	}
	c.setStandardHeaders(req)
	req.Header.Set("Content-Type", contentType)

	return c.execute(req, size)
}

// Statistics returns a snapshot of the request counters
func (c *Client) Statistics() ConnectionStatistics {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.stats
}

// CloseIdleConnections releases pooled connections
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// writeMultipart encodes file into w with a freshly generated boundary and
// returns the request Content-Type
func writeMultipart(w io.Writer, file interfaces.MultipartFile) (string, error) {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(newBoundary()); err != nil {
		return "", err
	}

	fieldName := file.FieldName
	if fieldName == "" {
		fieldName = UploadFieldName
	}
	filename := file.Filename
	if filename == "" {
		filename = DefaultUploadFilename
	}
	partType := file.ContentType
	if partType == "" {
		partType = DefaultImageType
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(fieldName), escapeQuotes(filename)))
	header.Set("Content-Type", partType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return "", err
	}
	if file.Body != nil {
		if _, err := io.Copy(part, file.Body); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	return mw.FormDataContentType(), nil
}

func newBoundary() string {
	return boundaryPrefix + uuid.NewString()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// setStandardHeaders sets common headers for all requests
func (c *Client) setStandardHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	if c.auth != nil && c.auth.Type == "bearer" && c.auth.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.auth.Token)
	}
}

// execute performs the request and maps the response to text. The body is closed on every path.
func (c *Client) execute(req *http.Request, bytesSent int64) (string, error) {
	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	responseTime := time.Since(startTime)

	if err != nil {
		c.updateRequestStatistics(responseTime, false, bytesSent, 0)
		return "", c.wrapTransportError(req, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.updateRequestStatistics(responseTime, err == nil && isSuccess(resp.StatusCode), bytesSent, int64(len(body)))
	c.logger.LogHTTPRequest(req.Method, redactURL(req.URL), resp.StatusCode, responseTime)

	if err != nil {
		return "", c.wrapTransportError(req, err)
	}

	if isSuccess(resp.StatusCode) {
		return string(body), nil
	}

	c.logger.Warn("Server returned non-success status",
		"url", redactURL(req.URL),
		"status_code", resp.StatusCode)

	if len(bytes.TrimSpace(body)) > 0 {
		return string(body), nil
	}
	return synthesizedStatusText(resp.StatusCode), nil
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode <= 299
}

func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Redacted()
}

// Error handling and wrapping methods

func (c *Client) wrapRequestError(operation, rawURL string, err error) error {
	return apperrors.NewValidationError(component).
		WithMessage("failed to create request").
		WithOperation(operation).
		WithContext("url", rawURL).
		WithCause(err).
		Build()
}

// wrapTransportError classifies a failed exchange as timeout, cancellation or network fault
func (c *Client) wrapTransportError(req *http.Request, err error) error {
	target := redactURL(req.URL)

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError(component).
			WithMessage("request deadline exceeded").
			WithUserMessage(apperrors.ReasonTimeout).
			WithContext("url", target).
			WithCause(err).
			Build()
	case stderrors.Is(err, context.Canceled):
		return apperrors.NewCanceledError(component).
			WithMessage("request canceled").
			WithUserMessage(apperrors.ReasonCanceled).
			WithContext("url", target).
			WithCause(err).
			Build()
	}

	return apperrors.NewNetworkError(component).
		WithMessage("request execution failed").
		WithUserMessage(fmt.Sprintf("network error: %v", unwrapURLError(err))).
		WithContext("url", target).
		WithCause(err).
		Build()
}

func unwrapURLError(err error) error {
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}

// updateRequestStatistics updates connection statistics
func (c *Client) updateRequestStatistics(responseTime time.Duration, success bool, sent, received int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stats := &c.stats
	stats.TotalRequests++
	stats.LastRequestTime = time.Now()
	stats.BytesSent += sent
	stats.BytesReceived += received

	if success {
		stats.SuccessfulRequests++
	} else {
		stats.FailedRequests++
	}

	if stats.TotalRequests == 1 {
		stats.AverageResponseTime = responseTime
	} else {
		total := stats.AverageResponseTime * time.Duration(stats.TotalRequests-1)
		stats.AverageResponseTime = (total + responseTime) / time.Duration(stats.TotalRequests)
	}
}

// BuildURL joins a host (with or without scheme) and an endpoint path. A path prefix
// on the host is kept, so "h:8000/api" and "/start" give "http://h:8000/api/start".
func BuildURL(scheme, host, endpoint string) string {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		if scheme == "" {
			scheme = "http"
		}
		host = scheme + "://" + host
	}

	baseURL, err := url.Parse(host)
	if err != nil {
		return strings.TrimRight(host, "/") + endpoint
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/" + strings.TrimLeft(endpoint, "/")
	baseURL.RawPath = ""
	baseURL.RawQuery = ""
	baseURL.Fragment = ""
	return baseURL.String()
}
