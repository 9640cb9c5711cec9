package calls

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a Store backed by the /call HTTP surface of the API process.
type Client struct {
	BaseURL string
	// Token is sent as a bearer credential when set.
	Token string
	HTTP  *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// APIError is a non-2xx response from the call API.
type APIError struct {
	StatusCode int
	Message    string
	Details    json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calls: api returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrValidation:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}

type callEnvelope struct {
	Success bool   `json:"success"`
	Call    Record `json:"call"`
}

type listEnvelope struct {
	Success bool     `json:"success"`
	Calls   []Record `json:"calls"`
}

type updateBody struct {
	CallID  string     `json:"callId"`
	Status  Status     `json:"status"`
	EndTime *time.Time `json:"endTime,omitempty"`
}

func (c *Client) Create(ctx context.Context, in NewRecord) (Record, error) {
	in, err := in.Normalize()
	if err != nil {
		return Record{}, err
	}
	var out callEnvelope
	if err := c.do(ctx, http.MethodPost, "/call", in, http.StatusCreated, &out); err != nil {
		return Record{}, err
	}
	return out.Call, nil
}

func (c *Client) Update(ctx context.Context, id string, p Patch) (Record, error) {
	var out callEnvelope
	body := updateBody{CallID: id, Status: p.Status, EndTime: p.EndTime}
	if err := c.do(ctx, http.MethodPut, "/call", body, http.StatusOK, &out); err != nil {
		return Record{}, err
	}
	return out.Call, nil
}

func (c *Client) List(ctx context.Context, f Filter) ([]Record, error) {
	var out listEnvelope
	path := "/call?userId=" + url.QueryEscape(f.UserID)
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	if out.Calls == nil {
		out.Calls = []Record{}
	}
	return out.Calls, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("calls: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != want {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var eb struct {
			Error   string          `json:"error"`
			Details json.RawMessage `json:"details"`
		}
		if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
			apiErr.Message = eb.Error
			apiErr.Details = eb.Details
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	return json.Unmarshal(raw, out)
}
