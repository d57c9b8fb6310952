// Package api defines the JSON request and response types of the hurl
// service.
package api

// ProbeResponse is the result of one executed probe: pretty-printed
// response headers and body, the rendered request trace, and the
// identifier the exercise was saved under.
type ProbeResponse struct {
	Header  string `json:"header"`
	Body    string `json:"body"`
	Request string `json:"request"`
	HurlID  string `json:"hurl_id"`
}

// HurlResponse is a stored hurl: its identifier and the raw parameter
// set it was built from, suitable for re-submission.
type HurlResponse struct {
	ID     string              `json:"id"`
	Params map[string][]string `json:"params"`
}

// ListHurlsResponse lists the saved hurl identifiers of an account.
type ListHurlsResponse struct {
	Hurls []string `json:"hurls"`
}

// SignResponse acknowledges a successful sign-in or sign-up.
type SignResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
