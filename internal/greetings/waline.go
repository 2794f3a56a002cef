package greetings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultPath     = "/christmas-tree"
	DefaultPageSize = 100

	maxBody = 4 << 20
)

// ErrNotConfigured is returned when no Waline server URL is set.
var ErrNotConfigured = errors.New("greetings: waline server not configured")

// Client reads greetings from a Waline comment server.
type Client struct {
	BaseURL  string
	Path     string
	PageSize int
	HTTP     *http.Client

	tracer trace.Tracer
}

func NewClient(baseURL, path string) *Client {
	if path == "" {
		path = DefaultPath
	}
	return &Client{
		BaseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Path:     path,
		PageSize: DefaultPageSize,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
		tracer:   otel.Tracer("grandtree.dev/internal/greetings"),
	}
}

// Configured reports whether the client has somewhere to fetch from. The placeholder
// URL from the sample configuration counts as unset.
func (c *Client) Configured() bool {
	return c != nil && c.BaseURL != "" && c.BaseURL != "https://your-waline-server.example.com"
}

// page accepts both the bare Waline page and the {errno, data} envelope.
type page struct {
	Errno  *int            `json:"errno"`
	Errmsg string          `json:"errmsg"`
	Count  int             `json:"count"`
	Data   json.RawMessage `json:"data"`
}

// Fetch loads the newest greetings.
func (c *Client) Fetch(ctx context.Context) (*Collection, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	ctx, span := c.start(ctx, "greetings.fetch")
	defer span.End()

	q := url.Values{}
	q.Set("path", c.Path)
	q.Set("pageSize", strconv.Itoa(c.pageSize()))
	q.Set("sortBy", "insertedAt_desc")
	body, err := c.get(ctx, "/comment", q)
	if err != nil {
		return nil, fail(span, err)
	}
	recs, total, err := decodePage(body)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int("greetings.count", len(recs)), attribute.Int("greetings.total", total))
	return NewCollection(recs, total), nil
}

func decodePage(body []byte) ([]Record, int, error) {
	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, 0, fmt.Errorf("decode comment page: %w", err)
	}
	if p.Errno != nil && *p.Errno != 0 {
		return nil, 0, fmt.Errorf("waline errno %d: %s", *p.Errno, p.Errmsg)
	}
	data := strings.TrimSpace(string(p.Data))
	switch {
	case data == "" || data == "null":
		return nil, 0, errors.New("decode comment page: missing data")
	case data[0] == '{':
		return decodePage(p.Data)
	}
	var recs []Record
	if err := json.Unmarshal(p.Data, &recs); err != nil {
		return nil, 0, fmt.Errorf("decode comments: %w", err)
	}
	total := p.Count
	if total == 0 {
		total = len(recs)
	}
	return recs, total, nil
}

// Count asks the server for the total number of greetings on the page.
func (c *Client) Count(ctx context.Context) (int, error) {
	if !c.Configured() {
		return 0, ErrNotConfigured
	}
	ctx, span := c.start(ctx, "greetings.count")
	defer span.End()

	q := url.Values{}
	q.Set("type", "count")
	q.Set("url", c.Path)
	body, err := c.get(ctx, "/comment", q)
	if err != nil {
		return 0, fail(span, err)
	}
	n, err := decodeCount(body)
	if err != nil {
		return 0, fail(span, err)
	}
	span.SetAttributes(attribute.Int("greetings.total", n))
	return n, nil
}

func decodeCount(body []byte) (int, error) {
	var n int
	if err := json.Unmarshal(body, &n); err == nil {
		return n, nil
	}
	var list []int
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) == 0 {
			return 0, nil
		}
		return list[0], nil
	}
	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return 0, fmt.Errorf("decode count: %w", err)
	}
	if p.Errno != nil && *p.Errno != 0 {
		return 0, fmt.Errorf("waline errno %d: %s", *p.Errno, p.Errmsg)
	}
	if len(p.Data) == 0 {
		return 0, errors.New("decode count: missing data")
	}
	return decodeCount(p.Data)
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("waline %s: status %d", endpoint, resp.StatusCode)
	}
	return body, nil
}

func (c *Client) pageSize() int {
	if c.PageSize <= 0 {
		return DefaultPageSize
	}
	return c.PageSize
}

func (c *Client) start(ctx context.Context, name string) (context.Context, trace.Span) {
	tr := c.tracer
	if tr == nil {
		tr = otel.Tracer("grandtree.dev/internal/greetings")
	}
	return tr.Start(ctx, name, trace.WithAttributes(
		attribute.String("waline.server", c.BaseURL),
		attribute.String("waline.path", c.Path),
	))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
