// Package client is a typed client for the hurl JSON API.
package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Client talks to a running hurl server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client for baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    http.DefaultClient,
	}
}

// ProbeResponse mirrors the server's probe result.
type ProbeResponse struct {
	Header  string `json:"header"`
	Body    string `json:"body"`
	Request string `json:"request"`
	HurlID  string `json:"hurl_id"`
}

// HurlResponse mirrors a stored hurl.
type HurlResponse struct {
	ID     string              `json:"id"`
	Params map[string][]string `json:"params"`
}

// ErrorResponse mirrors an API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Probe submits form to the server's probe endpoint.
func (c *Client) Probe(form url.Values) (*ProbeResponse, error) {
	resp, err := c.HTTP.PostForm(c.BaseURL+"/api/hurls", form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	// Probe failures come back as 200 with an error field.
	var result struct {
		ProbeResponse
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%s", result.Error)
	}
	return &result.ProbeResponse, nil
}

// GetHurl fetches the stored hurl with the given identifier.
func (c *Client) GetHurl(id string) (*HurlResponse, error) {
	resp, err := c.HTTP.Get(c.BaseURL + "/api/hurls/" + url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	var result HurlResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func parseError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("%s", errResp.Error)
	}
	return fmt.Errorf("unexpected status: %s", resp.Status)
}
