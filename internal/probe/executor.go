package probe

import (
	"context"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/foobargirl/hurl/internal/logging"
)

// maxBodyBytes bounds how much of a response body one probe will read.
const maxBodyBytes = 10 << 20

// DefaultTimeout applies when an Executor has no explicit timeout.
const DefaultTimeout = 30 * time.Second

// TransportError wraps a connection-level failure (DNS, connect, TLS,
// timeout) so callers can render it instead of failing the whole
// operation.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one successful probe execution.
type Result struct {
	Status      int
	RawHeaders  string // status line plus response header block
	Body        []byte
	ContentType string
	Wire        []string // outgoing header blocks, in send order
}

// Executor sends built requests through an independent transport per
// call, capturing the outgoing header blocks as they hit the wire.
type Executor struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// Execute sends spec and collects the response. Transport failures
// come back as *TransportError; the response body is read fully
// (bounded) before returning.
func (e *Executor) Execute(ctx context.Context, spec *RequestSpec) (*Result, error) {
	capture := &Capture{}
	client := e.newClient(capture, spec.FollowRedirects)

	var body io.Reader
	if spec.Method == "POST" {
		body = strings.NewReader(spec.FormBody())
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.URL, body)
	if err != nil {
		return nil, &ValidationError{Field: "url", Message: err.Error()}
	}
	if spec.Method == "POST" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, h := range spec.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := client.Do(req)
	if err != nil {
		if e.Logger != nil {
			e.Logger.Debug("probe transport failure",
				logging.Method(spec.Method), logging.URL(spec.URL), zap.Error(err))
		}
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	rawHeaders, err := httputil.DumpResponse(resp, false)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if e.Logger != nil {
		e.Logger.Debug("probe complete",
			logging.Method(spec.Method), logging.URL(spec.URL),
			logging.Status(resp.StatusCode),
			logging.ContentType(resp.Header.Get("Content-Type")))
	}

	return &Result{
		Status:      resp.StatusCode,
		RawHeaders:  string(rawHeaders),
		Body:        respBody,
		ContentType: resp.Header.Get("Content-Type"),
		Wire:        capture.Blocks(),
	}, nil
}

// newClient builds a client with a fresh transport bound to a single
// capture buffer. Executions never share transports, so concurrent
// probes cannot mix wire captures.
func (e *Executor) newClient(capture *Capture, follow bool) *http.Client {
	timeout := e.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	client := &http.Client{
		Transport: &captureTransport{
			base: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
			},
			capture: capture,
		},
		Timeout: timeout,
	}
	if !follow {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}
