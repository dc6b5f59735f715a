// Package proxy forwards browser API calls made against the static site's
// function mount to the procurement backend, adding CORS headers on the way back.
package proxy

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// DefaultMountPrefix is where the frontend reaches the proxy.
const DefaultMountPrefix = "/.netlify/functions/api"

const (
	allowMethods = "GET, POST, PUT, DELETE, OPTIONS, PATCH"
	allowHeaders = "Content-Type, Authorization"
)

// Event is one invocation as delivered by a serverless runtime.
type Event struct {
	Method          string            `json:"httpMethod"`
	Path            string            `json:"path"`
	RawQuery        string            `json:"rawQuery"`
	Headers         map[string]string `json:"headers"`
	Body            string            `json:"body"`
	IsBase64Encoded bool              `json:"isBase64Encoded"`
}

// Response is what the runtime sends back to the browser.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// Forwarder relays events to Upstream. It keeps no state between calls.
type Forwarder struct {
	Upstream    string // backend origin, without the /api suffix
	MountPrefix string
	HTTPClient  *http.Client
	Log         zerolog.Logger
}

func New(upstream, mountPrefix string, httpClient *http.Client, log zerolog.Logger) *Forwarder {
	if mountPrefix == "" {
		mountPrefix = DefaultMountPrefix
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Forwarder{
		Upstream:    strings.TrimRight(upstream, "/"),
		MountPrefix: mountPrefix,
		HTTPClient:  httpClient,
		Log:         log,
	}
}

// TargetURL maps a mounted path to the backend URL. The query string is kept verbatim.
func (f *Forwarder) TargetURL(path, rawQuery string) string {
	target := f.Upstream + "/api" + strings.TrimPrefix(path, f.MountPrefix)
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}

// Handle forwards ev and relays the backend answer. Any failure to reach the
// backend becomes a 500 carrying the error text.
func (f *Forwarder) Handle(ctx context.Context, ev Event) Response {
	res, err := f.forward(ctx, ev)
	if err != nil {
		f.Log.Error().Err(err).Str("method", ev.Method).Str("path", ev.Path).Msg("proxy request failed")
		body, _ := json.Marshal(map[string]string{"error": err.Error()})
		return Response{
			StatusCode: http.StatusInternalServerError,
			Headers: map[string]string{
				"Access-Control-Allow-Origin": "*",
				"Content-Type":                "application/json",
			},
			Body: string(body),
		}
	}
	return *res
}

func (f *Forwarder) forward(ctx context.Context, ev Event) (*Response, error) {
	method := strings.ToUpper(ev.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if method != http.MethodGet && method != http.MethodHead && ev.Body != "" {
		raw := []byte(ev.Body)
		if ev.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(ev.Body)
			if err != nil {
				return nil, fmt.Errorf("decode body: %w", err)
			}
			raw = decoded
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, f.TargetURL(ev.Path, ev.RawQuery), body)
	if err != nil {
		return nil, err
	}
	contentType := header(ev.Headers, "Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", header(ev.Headers, "Authorization"))

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	upstreamType := resp.Header.Get("Content-Type")
	if upstreamType == "" {
		upstreamType = "application/json"
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Headers: map[string]string{
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Methods": allowMethods,
			"Access-Control-Allow-Headers": allowHeaders,
			"Content-Type":                 upstreamType,
		},
		Body: string(data),
	}, nil
}

// header looks name up case-insensitively.
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// RegisterRoutes mounts the forwarder under MountPrefix for every method.
// CORS preflights are answered here and never reach the backend; all other
// requests, including plain OPTIONS without an Origin, are forwarded.
func (f *Forwarder) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group(f.MountPrefix, cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    strings.Split(allowMethods, ", "),
		AllowHeaders:    strings.Split(allowHeaders, ", "),
	}))
	group.Any("", f.ServeHTTP)
	group.Any("/*path", f.ServeHTTP)
}

// ServeHTTP adapts Handle to a gin route.
func (f *Forwarder) ServeHTTP(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	headers := make(map[string]string, len(c.Request.Header))
	for k := range c.Request.Header {
		headers[k] = c.Request.Header.Get(k)
	}

	res := f.Handle(c.Request.Context(), Event{
		Method:   c.Request.Method,
		Path:     c.Request.URL.Path,
		RawQuery: c.Request.URL.RawQuery,
		Headers:  headers,
		Body:     string(data),
	})

	for k, v := range res.Headers {
		if k != "Content-Type" {
			c.Header(k, v)
		}
	}
	c.Data(res.StatusCode, res.Headers["Content-Type"], []byte(res.Body))
}
