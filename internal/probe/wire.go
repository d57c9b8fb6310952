package probe

import (
	"net/http"
	"net/http/httputil"
)

// Capture accumulates the outgoing header blocks for a single
// execution, one block per request actually sent (redirect hops
// included), in send order. A Capture is scoped to one Executor call
// and must not be shared between executions.
type Capture struct {
	blocks []string
}

func (c *Capture) record(block string) {
	c.blocks = append(c.blocks, block)
}

// Blocks returns the captured header blocks in send order.
func (c *Capture) Blocks() []string {
	return c.blocks
}

// captureTransport records the wire form of each outgoing request's
// header block before delegating to the base transport. Redirect hops
// pass through RoundTrip individually, so every hop is captured.
type captureTransport struct {
	base    http.RoundTripper
	capture *Capture
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if dump, err := httputil.DumpRequestOut(req, false); err == nil {
		t.capture.record(string(dump))
	}
	return t.base.RoundTrip(req)
}
