package igvf

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DataObject is an arbitrary JSON object returned by the data provider or
// the hosting application's own API.
type DataObject map[string]any

// ObjectResult is the outcome of a single-object fetch.
type ObjectResult = Result[DataObject, *ErrorObject]

// ObjectsResult is the outcome of a bulk fetch resolving to many objects.
type ObjectsResult = Result[[]DataObject, *ErrorObject]

const (
	mimeJSON = "application/json"
	mimeText = "text/plain"
)

// Client issues requests to the data provider or the hosting application's
// own API, attaches the authentication header appropriate to its
// construction-time context, and normalizes every outcome into a Result.
// It holds no mutable state beyond its fixed per-instance headers and is
// safe for concurrent use.
//
// Construct one Client per logical request or session with New; the
// authentication context is fixed for the instance's lifetime.
type Client struct {
	httpClient   *http.Client
	config       Config
	rt           Runtime
	auth         AuthContext
	baseURL      string
	headers      http.Header
	maxURLLength int
	logger       Logger
	metrics      *MetricsCollector
	dedup        *coalescingTracker
}

// New constructs a Client for the given authentication context. Invalid
// configurations — cookie and session together, or an authentication mode
// used in the wrong runtime — are programming mistakes and fail here
// synchronously with a ConfigError; they are never deferred to request time.
func New(auth AuthContext, options ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: DefaultConfig(),
		rt:     DetectRuntime(),
		auth:   auth,
	}

	for _, option := range options {
		option(c)
	}

	if c.maxURLLength == 0 {
		c.maxURLLength = c.config.MaxURLLength
	}
	if c.maxURLLength == 0 {
		c.maxURLLength = defaultMaxURLLength
	}

	if cfgErr := auth.validate(c.rt); cfgErr != nil {
		return nil, cfgErr
	}
	c.headers = auth.headers(c.rt)

	if c.baseURL == "" {
		c.baseURL = auth.baseURL(c.rt, c.config)
	}
	if c.baseURL == "" {
		return nil, &ConfigError{Reason: "no base URL resolved; set the IGVF_*_URL environment or use WithBaseURL"}
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")

	return c, nil
}

// MustNew is like New but panics on a ConfigError. Use it where the
// authentication context is statically known to be valid.
func MustNew(auth AuthContext, options ...Option) *Client {
	c, err := New(auth, options...)
	if err != nil {
		panic(err)
	}
	return c
}

// Runtime returns the execution context the client resolved at construction.
func (c *Client) Runtime() Runtime {
	return c.rt
}

// BaseURL returns the base URL all path-relative requests resolve against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// requestOptions adjusts a single read request.
type requestOptions struct {
	dbRequest bool
}

// RequestOption adjusts a single read request.
type RequestOption func(*requestOptions)

// DBRequest directs the request at the primary database instead of the
// search-index mirror by appending datastore=database to the query string.
func DBRequest() RequestOption {
	return func(ro *requestOptions) {
		ro.dbRequest = true
	}
}

// GetObject requests the object at the given path relative to the resolved
// base URL. Non-2xx responses become the upstream's structured error
// re-tagged as the Err variant; transport failures become the synthesized
// network error. No failure is ever raised past this method.
func (c *Client) GetObject(ctx context.Context, path string, options ...RequestOption) ObjectResult {
	ro := requestOptions{}
	for _, option := range options {
		option(&ro)
	}
	return c.objectFromURL(ctx, c.pathURL(path, ro.dbRequest))
}

// GetObjectByURL is GetObject for a fully qualified URL, used to contact
// third-party or inter-service endpoints directly.
func (c *Client) GetObjectByURL(ctx context.Context, fullURL string) ObjectResult {
	return c.objectFromURL(ctx, fullURL)
}

// GetCollection requests the named collection with all of its members.
func (c *Client) GetCollection(ctx context.Context, collection string) ObjectResult {
	return c.GetObject(ctx, "/"+collection+"/?limit=all")
}

// PostObject sends payload as a JSON POST to the given path and returns the
// parsed response body. Unlike the read methods this is not Result-wrapped:
// the body is returned whatever the HTTP status, and a transport or decode
// failure yields the network error object rendered as a DataObject. Callers
// rely on this shape; use IsResponseSuccess to discriminate.
func (c *Client) PostObject(ctx context.Context, path string, payload any) DataObject {
	return c.writeObject(ctx, http.MethodPost, path, payload)
}

// PutObject writes payload with a PUT request. Same contract as PostObject.
func (c *Client) PutObject(ctx context.Context, path string, payload any) DataObject {
	return c.writeObject(ctx, http.MethodPut, path, payload)
}

// PatchObject merges payload into the object at path with a PATCH request.
// Same contract as PostObject.
func (c *Client) PatchObject(ctx context.Context, path string, payload any) DataObject {
	return c.writeObject(ctx, http.MethodPatch, path, payload)
}

// IsResponseSuccess reports whether a response body carries no error
// marker. Use it on values produced by Union() or by the write methods,
// where the caller holds a merged type instead of a Result.
func IsResponseSuccess(response DataObject) bool {
	if isErr, ok := response["isError"].(bool); ok && isErr {
		return false
	}
	if types, ok := response["@type"].([]any); ok {
		for _, t := range types {
			if s, ok := t.(string); ok && s == "Error" {
				return false
			}
		}
	}
	return true
}

// pathURL builds the complete request URL for a path, optionally forcing the
// read to come from the database rather than the search index.
func (c *Client) pathURL(path string, dbRequest bool) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !dbRequest {
		return c.baseURL + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return c.baseURL + path + sep + "datastore=database"
}

// fetchOutcome is the raw result of one HTTP round trip, before decoding.
type fetchOutcome struct {
	status int
	body   []byte
	err    error
}

// objectFromURL performs a coalescing-aware GET and decodes the outcome into
// an ObjectResult.
func (c *Client) objectFromURL(ctx context.Context, fullURL string) ObjectResult {
	out := c.getRaw(ctx, fullURL)
	return c.decodeObjectOutcome(fullURL, out)
}

func (c *Client) decodeObjectOutcome(fullURL string, out fetchOutcome) ObjectResult {
	if out.err != nil {
		c.logWarn("network error", "url", fullURL, "error", out.err.Error())
		return Err[DataObject, *ErrorObject](NetworkError())
	}
	if out.status < 200 || out.status > 299 {
		return Err[DataObject, *ErrorObject](decodeErrorBody(out.status, out.body))
	}
	var obj DataObject
	if err := json.Unmarshal(out.body, &obj); err != nil {
		c.logWarn("undecodable response body", "url", fullURL, "error", err.Error())
		return Err[DataObject, *ErrorObject](NetworkError())
	}
	return Ok[DataObject, *ErrorObject](obj)
}

// getRaw issues a GET, sharing one round trip between concurrent callers for
// the same URL when coalescing is enabled.
func (c *Client) getRaw(ctx context.Context, fullURL string) fetchOutcome {
	if c.dedup == nil {
		return c.execute(ctx, http.MethodGet, fullURL, mimeJSON, "", nil)
	}

	key := http.MethodGet + ":" + fullURL
	entry, owner := c.dedup.getOrCreate(key)
	if !owner {
		out, err := entry.wait(ctx)
		if err != nil {
			return fetchOutcome{err: err}
		}
		c.metrics.RecordDeduplicationHit(http.MethodGet, endpointFromURL(fullURL))
		return out
	}

	out := c.execute(ctx, http.MethodGet, fullURL, mimeJSON, "", nil)
	c.dedup.complete(key, out)
	return out
}

// execute performs one HTTP round trip and reads the full body. Transport
// failures are returned in the outcome, never raised.
func (c *Client) execute(ctx context.Context, method, fullURL, accept, contentType string, body []byte) fetchOutcome {
	start := time.Now()
	endpoint := endpointFromURL(fullURL)

	c.logDebug("request", "method", method, "url", fullURL)
	c.metrics.RecordRequestStart(method, endpoint)
	defer c.metrics.RecordRequestEnd(method, endpoint)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		c.metrics.RecordError("Network", method, endpoint)
		return fetchOutcome{err: err}
	}
	req.Header = cloneHeader(c.headers)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordError("Network", method, endpoint)
		c.metrics.RecordRequest(method, endpoint, 0, time.Since(start))
		return fetchOutcome{err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordError("Network", method, endpoint)
		c.metrics.RecordRequest(method, endpoint, 0, time.Since(start))
		return fetchOutcome{err: err}
	}

	c.metrics.RecordRequest(method, endpoint, resp.StatusCode, time.Since(start))
	if resp.StatusCode >= 400 {
		c.metrics.RecordError("Upstream", method, endpoint)
	}
	return fetchOutcome{status: resp.StatusCode, body: respBody}
}

func (c *Client) writeObject(ctx context.Context, method, path string, payload any) DataObject {
	fullURL := c.pathURL(path, false)

	body, err := json.Marshal(payload)
	if err != nil {
		c.logWarn("unencodable payload", "method", method, "url", fullURL, "error", err.Error())
		return networkErrorData()
	}

	out := c.execute(ctx, method, fullURL, mimeJSON, mimeJSON, body)
	if out.err != nil {
		c.logWarn("network error", "method", method, "url", fullURL, "error", out.err.Error())
		return networkErrorData()
	}

	var obj DataObject
	if err := json.Unmarshal(out.body, &obj); err != nil {
		c.logWarn("undecodable response body", "method", method, "url", fullURL, "error", err.Error())
		return networkErrorData()
	}
	return obj
}

// networkErrorData renders the synthesized network error as a DataObject for
// the raw-shaped write methods.
func networkErrorData() DataObject {
	raw, _ := json.Marshal(NetworkError())
	var obj DataObject
	_ = json.Unmarshal(raw, &obj)
	return obj
}

func (c *Client) logDebug(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) logWarn(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, keysAndValues...)
	}
}

func endpointFromURL(fullURL string) string {
	u, err := url.Parse(fullURL)
	if err != nil {
		return "unknown"
	}

	var builder strings.Builder
	builder.WriteString(u.Host)
	if u.Path != "" && u.Path != "/" {
		builder.WriteString(u.Path)
	} else {
		builder.WriteByte('/')
	}
	return builder.String()
}

func cloneHeader(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for k, values := range src {
		vCopy := make([]string, len(values))
		copy(vCopy, values)
		dst[k] = vCopy
	}
	return dst
}
