package mailbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://gmail.googleapis.com/gmail/v1"

// APIError wraps a non-2xx response from the mail provider. Search/fetch
// failures are transient; the caller logs them and retries next interval.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mailbox api: status=%d body=%s", e.StatusCode, e.Body)
}

// Summary is one entry of a search result.
type Summary struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// Header is a single decoded message header.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PartBody carries the base64url-encoded payload of a message part.
type PartBody struct {
	Size int    `json:"size"`
	Data string `json:"data"`
}

// Part is one node of a message's (possibly nested) MIME tree.
type Part struct {
	MimeType string    `json:"mimeType"`
	Headers  []Header  `json:"headers"`
	Body     *PartBody `json:"body"`
	Parts    []*Part   `json:"parts"`
}

// Message is a fully fetched candidate message. Transient; fetched fresh on
// every poll and never persisted.
type Message struct {
	ID           string `json:"id"`
	InternalDate string `json:"internalDate"`
	Payload      *Part  `json:"payload"`
}

// Header returns the first message header with the given name
// (case-insensitive), or "".
func (m *Message) Header(name string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Client talks to the mail provider's message API with bearer auth obtained
// from a shared TokenSource.
type Client struct {
	Tokens     *TokenSource
	BaseURL    string // defaults to the Gmail v1 endpoint
	HTTPClient *http.Client
}

// NewClient builds a mailbox client on top of the given token source.
func NewClient(tokens *TokenSource) *Client {
	return &Client{Tokens: tokens}
}

// SearchSince lists up to maxResults messages received strictly after since,
// across the whole mailbox rather than a single label.
func (c *Client) SearchSince(ctx context.Context, since time.Time, maxResults int) ([]Summary, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("after:%d", since.Unix()))
	q.Set("maxResults", fmt.Sprintf("%d", maxResults))

	var out struct {
		Messages []Summary `json:"messages"`
	}
	if err := c.get(ctx, "/users/me/messages?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// FetchFull retrieves one message with its complete MIME payload.
func (c *Client) FetchFull(ctx context.Context, id string) (*Message, error) {
	var msg Message
	if err := c.get(ctx, "/users/me/messages/"+url.PathEscape(id)+"?format=full", &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	token, err := c.Tokens.Token(ctx)
	if err != nil {
		return err
	}

	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
