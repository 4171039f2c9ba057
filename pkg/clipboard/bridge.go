// Package clipboard bridges host clipboard reads into embedded contexts that
// cannot reach the OS clipboard themselves.
//
// An embedded context posts a PasteRequest with its own request id over the
// console channel. Server hands it to Bridge, which performs the privileged
// read (image first, else text) and produces exactly one PasteResponse,
// falling back to "no data" when the read does not finish within the
// timeout. The response is evaluated back into the context where the
// agent settles its matching promise.
package clipboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/entrhq/hoverpilot/pkg/logging"
	"github.com/entrhq/hoverpilot/pkg/types"
	"github.com/google/uuid"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 2000 * time.Millisecond

// ErrBusy is returned when a request arrives while another is in flight.
var ErrBusy = errors.New("clipboard request already in flight")

// Bridge correlates paste requests with their single response.
type Bridge struct {
	provider Provider
	timeout  time.Duration
	logger   *logging.Logger

	mu       sync.Mutex
	pending  map[string]*pendingPaste
	inFlight bool
}

// pendingPaste tracks a request waiting for the privileged read.
type pendingPaste struct {
	requestID  string
	response   chan types.PasteResponse
	settleOnce sync.Once
}

// NewBridge creates a bridge reading from provider. A zero timeout uses
// DefaultTimeout.
func NewBridge(provider Provider, timeout time.Duration, logger *logging.Logger) *Bridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Bridge{
		provider: provider,
		timeout:  timeout,
		logger:   logging.OrDiscard(logger),
		pending:  make(map[string]*pendingPaste),
	}
}

// Timeout returns the bound applied to each request.
func (b *Bridge) Timeout() time.Duration {
	return b.timeout
}

// Request reads the clipboard for req and returns its response. It always
// returns within the timeout; an unanswered request yields NoData. Only one
// request may be in flight; overlapping ones get ErrBusy.
func (b *Bridge) Request(ctx context.Context, req types.PasteRequest) (types.PasteResponse, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	b.mu.Lock()
	if b.inFlight {
		b.mu.Unlock()
		return types.NoData(req.RequestID), ErrBusy
	}
	b.inFlight = true
	p := &pendingPaste{
		requestID: req.RequestID,
		response:  make(chan types.PasteResponse, 1),
	}
	b.pending[req.RequestID] = p
	b.mu.Unlock()

	defer b.settle(p)

	go b.read(req.RequestID)

	return b.wait(ctx, p), nil
}

// Resolve delivers resp to its pending request. It reports false when no
// request with that id is pending, including after a timeout.
func (b *Bridge) Resolve(resp types.PasteResponse) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.pending[resp.RequestID]
	if !ok {
		return false
	}
	delete(b.pending, resp.RequestID)

	select {
	case p.response <- resp:
		return true
	default:
		return false
	}
}

// Pending returns the number of unresolved requests.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Bridge) wait(ctx context.Context, p *pendingPaste) types.PasteResponse {
	timeout := time.NewTimer(b.timeout)
	defer timeout.Stop()

	select {
	case resp, ok := <-p.response:
		if !ok {
			return types.NoData(p.requestID)
		}
		return resp

	case <-timeout.C:
		b.logger.Warnf("Clipboard request %s timed out after %v", p.requestID, b.timeout)

	case <-ctx.Done():
		b.logger.Debugf("Clipboard request %s cancelled: %v", p.requestID, ctx.Err())
	}

	// A response that raced the deadline was already accepted by Resolve.
	b.settle(p)
	select {
	case resp, ok := <-p.response:
		if ok {
			return resp
		}
	default:
	}
	return types.NoData(p.requestID)
}

// settle removes p from the table and releases the in-flight slot. It is
// safe to call more than once.
func (b *Bridge) settle(p *pendingPaste) {
	p.settleOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if cur, ok := b.pending[p.requestID]; ok && cur == p {
			delete(b.pending, p.requestID)
		}
		b.inFlight = false
	})
}

func (b *Bridge) read(requestID string) {
	resp := types.NoData(requestID)

	if b.provider.HasImage() {
		img, err := b.provider.ReadImage()
		if err != nil {
			b.logger.Debugf("Clipboard image read failed: %v", err)
		} else if img != "" {
			resp = types.PasteResponse{RequestID: requestID, Kind: types.PasteKindImage, Payload: img}
		}
	}

	if !resp.HasData() {
		text, err := b.provider.ReadText()
		if err != nil {
			b.logger.Debugf("Clipboard text read failed: %v", err)
		} else if text != "" {
			resp = types.PasteResponse{RequestID: requestID, Kind: types.PasteKindText, Payload: text}
		}
	}

	b.Resolve(resp)
}
