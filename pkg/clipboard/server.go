package clipboard

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/entrhq/hoverpilot/pkg/inject"
	"github.com/entrhq/hoverpilot/pkg/logging"
	"github.com/entrhq/hoverpilot/pkg/surface"
	"github.com/entrhq/hoverpilot/pkg/types"
)

// deliverTimeout bounds evaluating a response back into a context.
const deliverTimeout = 2 * time.Second

// Server answers paste requests posted on a context's console channel.
type Server struct {
	bridge *Bridge
	prefix string
	logger *logging.Logger
}

// NewServer creates a server for requests carrying prefix.
func NewServer(bridge *Bridge, prefix string, logger *logging.Logger) *Server {
	if prefix == "" {
		prefix = inject.DefaultConsolePrefix
	}
	return &Server{
		bridge: bridge,
		prefix: prefix,
		logger: logging.OrDiscard(logger),
	}
}

// Serve subscribes to c's console channel and returns the unsubscribe function.
func (s *Server) Serve(c surface.Context) func() {
	return c.OnConsole(func(text string) {
		req, ok := ParseRequest(text, s.prefix)
		if !ok {
			return
		}
		s.handle(c, req)
	})
}

func (s *Server) handle(c surface.Context, req types.PasteRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), s.bridge.Timeout()+deliverTimeout)
	defer cancel()

	resp, err := s.bridge.Request(ctx, req)
	if errors.Is(err, ErrBusy) {
		s.logger.Debugf("Paste request %s rejected while another is in flight", req.RequestID)
	}

	matched, err := inject.ResolvePaste(ctx, c, resp)
	switch {
	case err != nil:
		s.logger.Debugf("Failed to deliver paste response %s: %v", req.RequestID, err)
	case !matched:
		// The context's own timer already settled it.
		s.logger.Debugf("Paste response %s arrived after the request settled", req.RequestID)
	default:
		s.logger.Debugf("Paste response %s delivered (kind=%q)", req.RequestID, resp.Kind)
	}
}

// ParseRequest extracts a PasteRequest from a console line.
func ParseRequest(text, prefix string) (types.PasteRequest, bool) {
	var req types.PasteRequest
	payload, ok := strings.CutPrefix(text, prefix)
	if !ok {
		return req, false
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return req, false
	}
	if req.RequestID == "" {
		return req, false
	}
	return req, true
}
