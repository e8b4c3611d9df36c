// Transport layer with pagination and error classification.

package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Notion API base URL.
	BaseURL = "https://api.notion.com/v1"
	// APIVersion is the pinned Notion API version, sent as a fixed header
	// on every call.
	APIVersion = "2022-06-28"
	// MaxPageSize is the page size cap enforced by the API.
	MaxPageSize = 100
	// requestsPerSecond is the API rate limit.
	requestsPerSecond = 3
)

// session owns the shared transport state: HTTP client, credentials,
// base URL, version header, rate limiter and retry policy. All
// request-issuing operations go through it; there is no process-wide
// state.
type session struct {
	base       string
	token      string
	version    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryMax   time.Duration
	logger     *slog.Logger
}

// newSession builds a session with the default transport configuration.
func newSession(token string) *session {
	return &session{
		base:    BaseURL,
		token:   token,
		version: APIVersion,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// listResponse is the wire shape of a paginated list. PropertyItem is
// carried through for the "retrieve a page property item" shape.
type listResponse struct {
	Object       string            `json:"object"`
	Results      []json.RawMessage `json:"results"`
	HasMore      bool              `json:"has_more"`
	NextCursor   *string           `json:"next_cursor"`
	Type         string            `json:"type,omitempty"`
	PropertyItem json.RawMessage   `json:"property_item,omitempty"`
}

// response is one fully-materialized logical result: the raw body for
// single objects, or the merged list for paginated results.
type response struct {
	Raw  json.RawMessage
	List *listResponse
}

// requestOptions tune one logical call.
type requestOptions struct {
	// limit caps the result to one page of at most limit items and
	// disables auto-pagination. 0 means everything.
	limit int
	// filter contributes a "filter" body field.
	filter *Filter
	// sorts contributes a "sorts" body field, or a single-criterion
	// "sort" field when searchSort is set.
	sorts      *Sort
	searchSort bool
}

// buildURL assembles {base}/{path}[/{id}][/{afterPath}].
func (s *session) buildURL(path, id, afterPath string) string {
	u := s.base + "/" + path
	if id != "" {
		u += "/" + id
	}
	if afterPath != "" {
		u += "/" + afterPath
	}
	return u
}

// method performs exactly one logical operation and returns its
// fully-materialized result, transparently draining multi-page results
// unless an explicit limit was supplied.
func (s *session) method(ctx context.Context, verb, path, id, afterPath string, body map[string]any, opts requestOptions) (*response, error) {
	if s.token == "" {
		return nil, &Error{
			Kind:    ErrUnauthorized,
			Message: "no integration token configured",
		}
	}

	limit := opts.limit
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	// Filter and sort are merged into the request immediately before
	// dispatch, never stored as request state.
	if opts.filter != nil || opts.sorts != nil {
		merged := map[string]any{}
		for k, v := range body {
			merged[k] = v
		}
		if opts.filter != nil {
			merged["filter"] = opts.filter.Get()
		}
		if opts.sorts != nil {
			if opts.searchSort {
				merged["sort"] = opts.sorts.GetSearch()
			} else {
				merged["sorts"] = opts.sorts.Get()
			}
		}
		body = merged
	}

	// The cursor and page size ride the query string for GET and the body
	// for POST. The two verb families are documented to disagree here.
	query := url.Values{}
	if limit > 0 {
		switch verb {
		case http.MethodGet:
			query.Set("page_size", strconv.Itoa(limit))
		case http.MethodPost:
			if body == nil {
				body = map[string]any{}
			}
			body["page_size"] = limit
		}
	}

	raw, err := s.do(ctx, verb, s.buildURL(path, id, afterPath), query, body)
	if err != nil {
		return nil, err
	}

	var head struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, &ContentError{URL: s.buildURL(path, id, afterPath), RequestBody: encodeBody(body), Body: raw}
	}
	if head.Object != "list" {
		return &response{Raw: raw}, nil
	}

	var list listResponse
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &ContentError{URL: s.buildURL(path, id, afterPath), RequestBody: encodeBody(body), Body: raw}
	}

	// An explicit limit is the caller's way of getting one bounded page
	// instead of everything.
	if limit > 0 {
		return &response{Raw: raw, List: &list}, nil
	}

	for list.HasMore && list.NextCursor != nil {
		cursor := *list.NextCursor
		pageQuery := url.Values{}
		pageBody := body
		switch verb {
		case http.MethodGet:
			pageQuery.Set("start_cursor", cursor)
		default:
			pageBody = map[string]any{}
			for k, v := range body {
				pageBody[k] = v
			}
			pageBody["start_cursor"] = cursor
		}
		raw, err := s.do(ctx, verb, s.buildURL(path, id, afterPath), pageQuery, pageBody)
		if err != nil {
			return nil, err
		}
		var page listResponse
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, &ContentError{URL: s.buildURL(path, id, afterPath), RequestBody: encodeBody(pageBody), Body: raw}
		}
		list.Results = append(list.Results, page.Results...)
		// The terminal state reflects the last page so the caller sees a
		// consistent "no more pages" result.
		list.HasMore = page.HasMore
		list.NextCursor = page.NextCursor
	}

	return &response{Raw: raw, List: &list}, nil
}

// do performs one HTTP exchange, applying rate limiting, the optional
// retry policy and error classification.
func (s *session) do(ctx context.Context, verb, urlStr string, query url.Values, body map[string]any) ([]byte, error) {
	if s.retryMax <= 0 {
		return s.doOnce(ctx, verb, urlStr, query, body)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = s.retryMax
	var out []byte
	op := func() error {
		data, err := s.doOnce(ctx, verb, urlStr, query, body)
		if err != nil {
			var apiErr *Error
			if errors.As(err, &apiErr) && retryable(apiErr.Kind) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = data
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

// encodeBody serializes a request body for error diagnostics.
func encodeBody(body map[string]any) []byte {
	if body == nil {
		return nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil
	}
	return data
}

// retryable reports whether an error kind is worth retrying.
func retryable(k ErrorKind) bool {
	switch k {
	case ErrRateLimited, ErrInternalServer, ErrServiceUnavailable, ErrDatabaseConnectionUnavailable, ErrServer:
		return true
	}
	return false
}

// doOnce performs exactly one HTTP exchange and classifies the response.
func (s *session) doOnce(ctx context.Context, verb, urlStr string, query url.Values, body map[string]any) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := urlStr
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reqBody []byte
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("notion: failed to marshal request body: %w", err)
		}
		reqBody = data
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, verb, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("notion: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Notion-Version", s.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("notion: failed to read response: %w", err)
	}
	s.logger.DebugContext(ctx, "notion api", "method", verb, "url", fullURL, "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &apiErr) != nil {
			return nil, &ContentError{
				Status:      resp.StatusCode,
				URL:         fullURL,
				RequestBody: reqBody,
				Body:        respBody,
			}
		}
		return nil, &Error{
			Kind:        classifyKind(apiErr.Code, resp.StatusCode),
			Status:      resp.StatusCode,
			Code:        apiErr.Code,
			Message:     apiErr.Message,
			URL:         fullURL,
			RequestBody: reqBody,
			Body:        respBody,
		}
	}

	if !json.Valid(respBody) {
		return nil, &ContentError{
			Status:      resp.StatusCode,
			URL:         fullURL,
			RequestBody: reqBody,
			Body:        respBody,
		}
	}
	return respBody, nil
}
