// Package graph is the read-only gateway to the external entity graph store.
// It speaks the store's HTTP transaction endpoint: one Cypher statement per
// request, committed immediately, rows decoded into column-keyed maps.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/vikramraman/graphpredict/internal/config"
)

// Sentinel errors for graph store failures.
var (
	ErrGraphUnreachable = errors.New("graph store unreachable")
	ErrGraphQueryError  = errors.New("graph query error")
	ErrGraphTimeout     = errors.New("graph query timeout")
)

// Row is one raw result row, keyed by the RETURN column aliases of the query.
type Row map[string]any

// Client is the interface for querying the graph store.
type Client interface {
	Query(ctx context.Context, statement string, params map[string]any) ([]Row, error)
	Ping(ctx context.Context) error
}

// HTTPClient implements Client using the graph store's HTTP API.
type HTTPClient struct {
	baseURL  string
	database string
	username string
	password string
	client   *http.Client
}

// NewHTTPClient creates a new graph store HTTP client.
func NewHTTPClient(cfg config.GraphConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:  cfg.BaseURL,
		database: cfg.Database,
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *HTTPClient) Query(ctx context.Context, statement string, params map[string]any) ([]Row, error) {
	body, err := json.Marshal(txRequest{
		Statements: []txStatement{{Statement: statement, Parameters: params}},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	u := fmt.Sprintf("%s/db/%s/tx/commit", c.baseURL, c.database)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	c.setAuth(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrGraphQueryError, resp.StatusCode)
	}

	var txResp txResponse
	if err := json.NewDecoder(resp.Body).Decode(&txResp); err != nil {
		return nil, fmt.Errorf("decoding graph response: %w", err)
	}

	if len(txResp.Errors) > 0 {
		e := txResp.Errors[0]
		return nil, fmt.Errorf("%w: %s: %s", ErrGraphQueryError, e.Code, e.Message)
	}
	if len(txResp.Results) == 0 {
		return []Row{}, nil
	}

	return parseResult(txResp.Results[0]), nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setAuth(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGraphUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: graph store not ready (status %d)", ErrGraphUnreachable, resp.StatusCode)
	}

	return nil
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if c.username != "" && c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrGraphTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrGraphTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrGraphUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrGraphUnreachable, err)
}

// parseResult zips column aliases with row values.
func parseResult(res txResult) []Row {
	rows := make([]Row, 0, len(res.Data))
	for _, d := range res.Data {
		row := make(Row, len(res.Columns))
		for i, col := range res.Columns {
			if i < len(d.Row) {
				row[col] = d.Row[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// --- transaction API request/response types ---

type txRequest struct {
	Statements []txStatement `json:"statements"`
}

type txStatement struct {
	Statement  string         `json:"statement"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type txResponse struct {
	Results []txResult `json:"results"`
	Errors  []txError  `json:"errors"`
}

type txResult struct {
	Columns []string `json:"columns"`
	Data    []txData `json:"data"`
}

type txData struct {
	Row []any `json:"row"`
}

type txError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Str returns a string column of the row, if present.
func (r Row) Str(key string) (string, bool) {
	v, ok := r[key].(string)
	return v, ok
}

// Float returns a numeric column as float64. JSON numbers decode as float64;
// absent or non-numeric values report ok=false.
func (r Row) Float(key string) (float64, bool) {
	v, ok := r[key].(float64)
	return v, ok
}

// Int returns a numeric column truncated to int.
func (r Row) Int(key string) (int, bool) {
	v, ok := r[key].(float64)
	if !ok {
		return 0, false
	}
	return int(v), true
}

// Bool returns a boolean column.
func (r Row) Bool(key string) (bool, bool) {
	v, ok := r[key].(bool)
	return v, ok
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
