package request

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/omochice/story-chat/internal/bridge"
)

// DefaultTimeout bounds one exchange.
const DefaultTimeout = 10 * time.Second

const maxResponseSize = 4 << 20

// Poster sends JSON POST requests with a per-request timeout.
type Poster struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewPoster creates a Poster using http.DefaultClient. A zero timeout means
// DefaultTimeout.
func NewPoster(timeout time.Duration) *Poster {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Poster{Client: http.DefaultClient, Timeout: timeout}
}

// PostJSON posts body to url and returns the response body. Failures are
// classified: a timeout is KindTimeout, an unreachable server KindConnect and
// anything else, including a non-2xx status, KindSend.
func (p *Poster) PostJSON(ctx context.Context, url string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, bridge.NewError(bridge.KindSend, "post", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, classify(err, p.Timeout)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, classify(err, p.Timeout)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, bridge.NewError(bridge.KindSend, "post", errors.Errorf("%s: %s", resp.Status, bytes.TrimSpace(data)))
	}
	return data, nil
}

func classify(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return bridge.NewError(bridge.KindTimeout, "post", errors.Errorf("no response within %v", timeout))
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return bridge.NewError(bridge.KindTimeout, "post", errors.Errorf("no response within %v", timeout))
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return bridge.NewError(bridge.KindConnect, "post", err)
	}
	return bridge.NewError(bridge.KindSend, "post", err)
}
