package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// HTTPFacade is the reference net/http implementation of Facade against
// a real Kinto-protocol server.
type HTTPFacade struct {
	baseURL    string
	client     *http.Client
	logger     *logrus.Logger
	events     *EventEmitter
	maxRetries uint64

	jwtKey     []byte
	jwtSubject string

	serverInfo *ServerInfo

	backoffUntil time.Time
}

// HTTPFacadeOptions configures an HTTPFacade.
type HTTPFacadeOptions struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries uint64
	Logger     *logrus.Logger
}

// NewHTTPFacade returns an HTTPFacade targeting baseURL (e.g.
// "https://example.com/v1").
func NewHTTPFacade(opts HTTPFacadeOptions) *HTTPFacade {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &HTTPFacade{
		baseURL:    opts.BaseURL,
		client:     &http.Client{Timeout: opts.Timeout},
		logger:     opts.Logger,
		events:     NewEventEmitter(),
		maxRetries: opts.MaxRetries,
	}
}

// WithJWTAuth configures the facade to mint a short-lived HS256 bearer
// token for every outgoing request, signed with signingKey for subject.
func (f *HTTPFacade) WithJWTAuth(signingKey []byte, subject string) *HTTPFacade {
	f.jwtKey = signingKey
	f.jwtSubject = subject
	return f
}

func (f *HTTPFacade) Events() *EventEmitter { return f.events }

func (f *HTTPFacade) authHeader() (string, error) {
	if f.jwtKey == nil {
		return "", nil
	}
	claims := jwt.RegisteredClaims{
		Subject:   f.jwtSubject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(f.jwtKey)
	if err != nil {
		return "", fmt.Errorf("remote: sign bearer token: %w", err)
	}
	return "Bearer " + signed, nil
}

// do executes one request with retry/backoff via cenkalti/backoff/v4,
// honoring any server-reported Backoff window recorded from a prior call.
func (f *HTTPFacade) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if !f.backoffUntil.IsZero() && time.Now().Before(f.backoffUntil) && !ignoreBackoff(ctx) {
		return nil, &BackoffSignal{RemainingSeconds: int(time.Until(f.backoffUntil).Seconds())}
	}

	auth, err := f.authHeader()
	if err != nil {
		return nil, err
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.maxRetries)
	policy = backoff.WithContext(policy, ctx)

	var resp *http.Response
	operation := func() error {
		r := req.Clone(ctx)
		if req.Body != nil {
			r.Body, _ = req.GetBody()
		}
		res, doErr := f.client.Do(r)
		if doErr != nil {
			return doErr
		}
		if res.StatusCode == http.StatusServiceUnavailable {
			retryAfter := parseRetryAfter(res.Header.Get("Retry-After"))
			res.Body.Close()
			f.events.Emit(Event{Type: "retry-after", Data: retryAfter})
			return &RetryAfterSignal{RemainingSeconds: retryAfter}
		}
		resp = res
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		f.logger.WithError(err).Debug("remote request failed after retries")
		return nil, err
	}

	if b := resp.Header.Get("Backoff"); b != "" {
		if secs, err := strconv.Atoi(b); err == nil {
			f.backoffUntil = time.Now().Add(time.Duration(secs) * time.Second)
			f.events.Emit(Event{Type: "backoff", Data: secs})
		}
	}
	if dep := resp.Header.Get("Alert"); dep != "" {
		f.events.Emit(Event{Type: "deprecated", Data: dep})
	}
	if resp.StatusCode == http.StatusGone {
		resp.Body.Close()
		return nil, &FlushedSignal{}
	}
	return resp, nil
}

func parseRetryAfter(v string) int {
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 1
	}
	return secs
}

func (f *HTTPFacade) GetServerInfo(ctx context.Context) (*ServerInfo, error) {
	if f.serverInfo != nil {
		return f.serverInfo, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/", nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Settings struct {
			BatchMaxRequests int `json:"batch_max_requests"`
		} `json:"settings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("remote: decode server info: %w", err)
	}
	info := &ServerInfo{BatchMaxRequests: body.Settings.BatchMaxRequests, URL: f.baseURL}
	if info.BatchMaxRequests == 0 {
		info.BatchMaxRequests = 25
	}
	f.serverInfo = info
	return info, nil
}

func (f *HTTPFacade) GetCollectionMetadata(ctx context.Context, bucket, collectionName string) (map[string]any, error) {
	path := fmt.Sprintf("%s/buckets/%s/collections/%s", f.baseURL, bucket, collectionName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, &TransportStatusError{StatusCode: resp.StatusCode}
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if data, ok := body["data"].(map[string]any); ok {
		return data, nil
	}
	return body, nil
}

func (f *HTTPFacade) ListRecords(ctx context.Context, bucket, collectionName string, opts ListRecordsOptions) (*ListRecordsResult, error) {
	path := fmt.Sprintf("%s/buckets/%s/collections/%s/records", f.baseURL, bucket, collectionName)
	q := url.Values{}
	q.Set("_since", strconv.FormatInt(opts.Since, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if opts.ExpectedTimestamp != 0 {
		req.Header.Set("If-None-Match", strconv.Quote(strconv.FormatInt(opts.ExpectedTimestamp, 10)))
	}

	resp, err := f.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, &TransportStatusError{StatusCode: resp.StatusCode}
	}

	var body struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("remote: decode list records: %w", err)
	}

	lastModified := opts.Since
	if etag := resp.Header.Get("ETag"); etag != "" {
		if ts, parseErr := strconv.ParseInt(trimQuotes(etag), 10, 64); parseErr == nil {
			lastModified = ts
		}
	}
	return &ListRecordsResult{Records: body.Data, LastModified: lastModified}, nil
}

func (f *HTTPFacade) Batch(ctx context.Context, operations []BatchOperation) ([]BatchOperationResult, error) {
	info, err := f.GetServerInfo(ctx)
	if err != nil {
		return nil, err
	}

	var results []BatchOperationResult
	chunkSize := info.BatchMaxRequests
	if chunkSize <= 0 {
		chunkSize = len(operations)
	}
	for start := 0; start < len(operations); start += chunkSize {
		end := start + chunkSize
		if end > len(operations) {
			end = len(operations)
		}
		chunkResults, err := f.sendBatchChunk(ctx, operations[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, chunkResults...)
	}
	return results, nil
}

func (f *HTTPFacade) sendBatchChunk(ctx context.Context, operations []BatchOperation) ([]BatchOperationResult, error) {
	type wireRequest struct {
		Method  string            `json:"method"`
		Path    string            `json:"path"`
		Headers map[string]string `json:"headers,omitempty"`
		Body    map[string]any    `json:"body,omitempty"`
	}
	requests := make([]wireRequest, 0, len(operations))
	for _, op := range operations {
		requests = append(requests, wireRequest{Method: op.Method, Path: op.Path, Headers: op.Headers, Body: op.Body})
	}

	payload, err := json.Marshal(map[string]any{"requests": requests})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/batch", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, &TransportStatusError{StatusCode: resp.StatusCode}
	}

	var body struct {
		Responses []struct {
			Status int            `json:"status"`
			Body   map[string]any `json:"body"`
		} `json:"responses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("remote: decode batch response: %w", err)
	}

	out := make([]BatchOperationResult, 0, len(body.Responses))
	for _, r := range body.Responses {
		out = append(out, BatchOperationResult{Status: r.Status, Body: r.Body})
	}
	return out, nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// TransportStatusError wraps an unexpected HTTP status from the remote
// that does not match any of the recognized sync-protocol signals.
type TransportStatusError struct {
	StatusCode int
}

func (e *TransportStatusError) Error() string {
	return fmt.Sprintf("remote: unexpected status %d", e.StatusCode)
}
