package api

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
	"strings"
	"time"

	"visadesk/internal/fields"
	"visadesk/internal/record"

	"github.com/google/uuid"
)

// DefaultPageSize is the page size used for list fetches.
const DefaultPageSize = 200

// LoadAllLimit is the limit used for a single "load all" fetch.
const LoadAllLimit = 100000

const logoutTimeout = 3 * time.Second

// Client talks to the visa-agency REST backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	reg        *fields.Registry
	log        *slog.Logger
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRegistry sets the registry used to convert date fields on the way in.
func WithRegistry(reg *fields.Registry) Option {
	return func(c *Client) {
		if reg != nil {
			c.reg = reg
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{},
		reg:        fields.Default(),
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Registry() *fields.Registry { return c.reg }

// envelope is the backend's response wrapper.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) ok() bool {
	s := strings.ToLower(strings.TrimSpace(e.Status))
	return s == "" || s == "success" || s == "ok"
}

// do issues a request and returns the response body. Any non-2xx response
// becomes an *Error of the given kind.
func (c *Client) do(ctx context.Context, kind error, method, path string, query url.Values, body any) ([]byte, error) {
	op := method + " " + path
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Op: op, Err: fmt.Errorf("encode body: %w", err), kind: kind}
		}
		reqBody = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, &Error{Op: op, Err: err, kind: kind}
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed", "op", op, "request_id", reqID, "err", err)
		return nil, &Error{Op: op, Err: err, kind: kind}
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	c.log.Debug("request", "op", op, "request_id", reqID, "status", resp.StatusCode, "dur", time.Since(start))
	if err != nil {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Err: err, kind: kind}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(b))
		var env envelope
		if json.Unmarshal(b, &env) == nil && strings.TrimSpace(env.Message) != "" {
			msg = env.Message
		}
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: msg, kind: kind}
	}
	return b, nil
}

// decodeEnvelope accepts either {status, data, message} or a bare payload.
func decodeEnvelope(op string, kind error, b []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] != '{' {
		return json.RawMessage(trimmed), nil
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("decode response: %w", err), kind: kind}
	}
	_, hasData := keys["data"]
	_, hasID := keys["id"]
	if !hasData && hasID {
		// A bare record; its "status" is the record status, not the envelope's.
		return json.RawMessage(trimmed), nil
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("decode response: %w", err), kind: kind}
	}
	if !env.ok() {
		msg := env.Message
		if strings.TrimSpace(msg) == "" {
			msg = "status " + env.Status
		}
		return nil, &Error{Op: op, Message: msg, kind: kind}
	}
	if !hasData && env.Status == "" {
		return json.RawMessage(trimmed), nil
	}
	return env.Data, nil
}

func decodeAny(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}

// Page is one page of traveler groups.
type Page struct {
	Groups     []record.Group
	Page       int
	Total      int
	TotalPages int
	// Paginated is false when the backend returned a bare array.
	Paginated bool
}

type pagePayload struct {
	Content       []map[string]any `json:"content"`
	TotalElements json.Number      `json:"totalElements"`
	TotalPages    json.Number      `json:"totalPages"`
}

// ListTravelers fetches one page of travelers (with dependents embedded).
func (c *Client) ListTravelers(ctx context.Context, page, limit int) (Page, error) {
	const path = "/travelers"
	op := http.MethodGet + " " + path
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	b, err := c.do(ctx, ErrLoadFailed, http.MethodGet, path, q, nil)
	if err != nil {
		return Page{}, err
	}
	data, err := decodeEnvelope(op, ErrLoadFailed, b)
	if err != nil {
		return Page{}, err
	}
	out := Page{Page: page}
	var raws []map[string]any
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
	case trimmed[0] == '[':
		if err := decodeAny(trimmed, &raws); err != nil {
			return Page{}, &Error{Op: op, Err: fmt.Errorf("decode list: %w", err), kind: ErrLoadFailed}
		}
		out.Total = len(raws)
		out.TotalPages = 1
	default:
		var p pagePayload
		if err := decodeAny(trimmed, &p); err != nil {
			return Page{}, &Error{Op: op, Err: fmt.Errorf("decode page: %w", err), kind: ErrLoadFailed}
		}
		raws = p.Content
		out.Paginated = true
		if n, err := p.TotalElements.Int64(); err == nil {
			out.Total = int(n)
		}
		if n, err := p.TotalPages.Int64(); err == nil {
			out.TotalPages = int(n)
		}
	}
	for _, raw := range raws {
		g, err := record.FromWire(raw, record.Travelers, c.reg)
		if err != nil {
			return Page{}, &Error{Op: op, Err: err, kind: ErrLoadFailed}
		}
		out.Groups = append(out.Groups, g)
	}
	return out, nil
}

func recordPath(table record.Table, id int64) string {
	return "/" + string(table) + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) getObject(ctx context.Context, table record.Table, id int64) (map[string]any, error) {
	path := recordPath(table, id)
	op := http.MethodGet + " " + path
	b, err := c.do(ctx, ErrLoadFailed, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	data, err := decodeEnvelope(op, ErrLoadFailed, b)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := decodeAny(data, &raw); err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("decode record: %w", err), kind: ErrLoadFailed}
	}
	return raw, nil
}

// FetchGroup fetches a full traveler record with its dependents.
func (c *Client) FetchGroup(ctx context.Context, travelerID int64) (record.Group, error) {
	raw, err := c.getObject(ctx, record.Travelers, travelerID)
	if err != nil {
		return record.Group{}, err
	}
	g, err := record.FromWire(raw, record.Travelers, c.reg)
	if err != nil {
		return record.Group{}, &Error{Op: "GET " + recordPath(record.Travelers, travelerID), Err: err, kind: ErrLoadFailed}
	}
	return g, nil
}

// FetchRecord fetches one full record of either table.
func (c *Client) FetchRecord(ctx context.Context, table record.Table, id int64) (record.Record, error) {
	raw, err := c.getObject(ctx, table, id)
	if err != nil {
		return record.Record{}, err
	}
	r, err := record.RecordFromWire(raw, table, c.reg)
	if err != nil {
		return record.Record{}, &Error{Op: "GET " + recordPath(table, id), Err: err, kind: ErrLoadFailed}
	}
	return r, nil
}

func parseCreatedID(op string, data json.RawMessage) (int64, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return 0, &Error{Op: op, Message: "no id in response", kind: ErrUpdateFailed}
	}
	if trimmed[0] == '{' {
		var obj struct {
			ID json.Number `json:"id"`
		}
		if err := decodeAny(trimmed, &obj); err != nil {
			return 0, &Error{Op: op, Err: err, kind: ErrUpdateFailed}
		}
		trimmed = []byte(obj.ID.String())
	}
	id, err := strconv.ParseInt(strings.Trim(string(trimmed), `"`), 10, 64)
	if err != nil || id <= 0 {
		return 0, &Error{Op: op, Message: "invalid id in response", Err: err, kind: ErrUpdateFailed}
	}
	return id, nil
}

// CreateTraveler creates an empty traveler and returns its id.
func (c *Client) CreateTraveler(ctx context.Context) (int64, error) {
	const path = "/travelers"
	b, err := c.do(ctx, ErrUpdateFailed, http.MethodPost, path, nil, map[string]any{})
	if err != nil {
		return 0, err
	}
	op := http.MethodPost + " " + path
	data, err := decodeEnvelope(op, ErrUpdateFailed, b)
	if err != nil {
		return 0, err
	}
	return parseCreatedID(op, data)
}

// CreateDependent creates an empty dependent under a traveler.
func (c *Client) CreateDependent(ctx context.Context, travelerID int64) (int64, error) {
	const path = "/dependents"
	q := url.Values{}
	q.Set("traveler_id", strconv.FormatInt(travelerID, 10))
	b, err := c.do(ctx, ErrUpdateFailed, http.MethodPost, path, q, map[string]any{})
	if err != nil {
		return 0, err
	}
	op := http.MethodPost + " " + path
	data, err := decodeEnvelope(op, ErrUpdateFailed, b)
	if err != nil {
		return 0, err
	}
	return parseCreatedID(op, data)
}

type patchBody struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// PatchField sends a single-field mutation. value must already be in wire format.
func (c *Client) PatchField(ctx context.Context, table record.Table, id int64, field, value string) error {
	path := recordPath(table, id)
	b, err := c.do(ctx, ErrUpdateFailed, http.MethodPatch, path, nil, patchBody{Field: field, Value: value})
	if err != nil {
		return err
	}
	_, err = decodeEnvelope(http.MethodPatch+" "+path, ErrUpdateFailed, b)
	return err
}

func (c *Client) Delete(ctx context.Context, table record.Table, id int64) error {
	path := recordPath(table, id)
	b, err := c.do(ctx, ErrUpdateFailed, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	_, err = decodeEnvelope(http.MethodDelete+" "+path, ErrUpdateFailed, b)
	return err
}

// Address is the result of a postcode lookup.
type Address struct {
	Line1    string `json:"address_line_1"`
	Line2    string `json:"address_line_2"`
	City     string `json:"city"`
	Province string `json:"state_province"`
	Postcode string `json:"zip"`
	Country  string `json:"country"`
}

var ErrPostcodeNotFound = errors.New("postcode not found")

// LookupPostcode resolves a postcode to an address.
func (c *Client) LookupPostcode(ctx context.Context, postcode string) (Address, error) {
	code := strings.ToUpper(strings.Join(strings.Fields(postcode), ""))
	if code == "" {
		return Address{}, ErrPostcodeNotFound
	}
	path := "/postcode/" + url.PathEscape(code)
	op := http.MethodGet + " " + path
	b, err := c.do(ctx, ErrLoadFailed, http.MethodGet, path, nil, nil)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return Address{}, fmt.Errorf("%w: %s", ErrPostcodeNotFound, code)
		}
		return Address{}, err
	}
	data, err := decodeEnvelope(op, ErrLoadFailed, b)
	if err != nil {
		return Address{}, err
	}
	var raw map[string]any
	if err := decodeAny(data, &raw); err != nil {
		return Address{}, &Error{Op: op, Err: err, kind: ErrLoadFailed}
	}
	get := func(k string) string {
		for rk, v := range raw {
			if record.NormalizeKey(rk) == k {
				if s, ok := v.(string); ok {
					return strings.TrimSpace(s)
				}
			}
		}
		return ""
	}
	addr := Address{
		Line1:    get("address_line_1"),
		Line2:    get("address_line_2"),
		City:     get("city"),
		Province: get("state_province"),
		Postcode: get("zip"),
		Country:  get("country"),
	}
	if addr.Postcode == "" {
		addr.Postcode = get("postcode")
	}
	if addr.Postcode == "" {
		addr.Postcode = code
	}
	return addr, nil
}

// Logout notifies the backend that the session ends. It is the only call
// with its own short timeout.
func (c *Client) Logout(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, logoutTimeout)
	defer cancel()
	_, err := c.do(ctx, ErrUpdateFailed, http.MethodPost, "/auth/logout", nil, map[string]any{})
	return err
}
