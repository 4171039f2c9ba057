// Package generate turns hovered text into reply suggestions through one or
// more chat-completions backends.
//
// Each backend call is bounded by a timeout. Rate-limit responses are
// retried with exponential backoff; any other failure, or exhausted
// retries, falls through to the next backend.
package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/hoverpilot/pkg/llm"
	"github.com/entrhq/hoverpilot/pkg/llm/parser"
	"github.com/entrhq/hoverpilot/pkg/llm/tokenizer"
	"github.com/entrhq/hoverpilot/pkg/logging"
	"github.com/entrhq/hoverpilot/pkg/types"
)

var (
	// ErrRateLimited is returned when a backend kept rate limiting past the retry cap.
	ErrRateLimited = errors.New("rate limited")

	// ErrAllBackendsFailed is returned when no backend produced a reply.
	ErrAllBackendsFailed = errors.New("all backends failed")
)

const (
	DefaultTimeout         = 20 * time.Second
	DefaultMaxRetries      = 3
	DefaultBaseBackoff     = time.Second
	DefaultMaxBackoff      = 8 * time.Second
	DefaultSuggestions     = 3
	DefaultMaxPromptTokens = 1500
)

// DefaultStyleRules describe the reply voice when none are configured.
const DefaultStyleRules = `Write like a real person replying on a social feed.
Keep each reply under 280 characters.
No hashtags. No emoji unless the post uses them.
Match the language of the post.`

// Options configures a Generator.
type Options struct {
	// Timeout bounds each backend call.
	Timeout time.Duration

	// MaxRetries is the number of retries after a rate-limit response.
	MaxRetries int

	// BaseBackoff doubles on every retry up to MaxBackoff.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// StyleRules is the default style hint used by Suggest.
	StyleRules string

	// Suggestions is how many replies Suggest asks for.
	Suggestions int

	// MaxPromptTokens truncates hovered text longer than this.
	MaxPromptTokens int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = DefaultBaseBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = DefaultMaxBackoff
	}
	if o.StyleRules == "" {
		o.StyleRules = DefaultStyleRules
	}
	if o.Suggestions <= 0 {
		o.Suggestions = DefaultSuggestions
	}
	if o.MaxPromptTokens <= 0 {
		o.MaxPromptTokens = DefaultMaxPromptTokens
	}
	return o
}

// Generator calls backends in order until one replies.
type Generator struct {
	backends  []llm.Provider
	opts      Options
	tokenizer *tokenizer.Tokenizer
	sleep     func(ctx context.Context, d time.Duration) error
	logger    *logging.Logger
}

// New creates a Generator over backends, primary first. tok may be nil, in
// which case prompt truncation uses a character estimate.
func New(backends []llm.Provider, tok *tokenizer.Tokenizer, opts Options, logger *logging.Logger) (*Generator, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("at least one backend is required")
	}
	return &Generator{
		backends:  backends,
		opts:      opts.withDefaults(),
		tokenizer: tok,
		sleep:     sleepContext,
		logger:    logging.OrDiscard(logger),
	}, nil
}

// Generate returns one completion for text under styleRules, with an
// optional extra instruction from the user.
func (g *Generator) Generate(ctx context.Context, text, styleRules, extra string) (string, error) {
	messages := g.buildMessages(text, styleRules, extra, 1)
	return g.complete(ctx, messages)
}

// Suggest returns up to the configured number of reply suggestions for text.
func (g *Generator) Suggest(ctx context.Context, text, instruction string) ([]string, error) {
	messages := g.buildMessages(text, g.opts.StyleRules, instruction, g.opts.Suggestions)
	reply, err := g.complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	suggestions := ParseSuggestions(reply, g.opts.Suggestions)
	if len(suggestions) == 0 {
		return nil, fmt.Errorf("backend returned no usable suggestions")
	}
	return suggestions, nil
}

func (g *Generator) complete(ctx context.Context, messages []*types.Message) (string, error) {
	var errs []error
	for i, backend := range g.backends {
		reply, err := g.callWithRetry(ctx, backend, messages)
		if err == nil {
			answer, reasoning := parser.StripReasoning(reply)
			if reasoning != "" {
				g.logger.Debugf("Dropped %d bytes of reasoning from %s", len(reasoning), backend.GetModel())
			}
			return answer, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		errs = append(errs, fmt.Errorf("%s: %w", backend.GetModel(), err))
		if i < len(g.backends)-1 {
			g.logger.Warnf("Backend %s failed, falling back: %v", backend.GetModel(), err)
		}
	}
	return "", fmt.Errorf("%w: %w", ErrAllBackendsFailed, errors.Join(errs...))
}

func (g *Generator) callWithRetry(ctx context.Context, backend llm.Provider, messages []*types.Message) (string, error) {
	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
		reply, err := backend.Complete(callCtx, messages)
		cancel()

		if err == nil {
			return reply.Content, nil
		}
		if !llm.IsRateLimited(err) {
			return "", err
		}
		if attempt >= g.opts.MaxRetries {
			return "", fmt.Errorf("%w after %d retries: %w", ErrRateLimited, attempt, err)
		}

		delay := g.backoff(attempt, err)
		g.logger.Infof("Rate limited by %s, retrying in %v (attempt %d/%d)", backend.GetModel(), delay, attempt+1, g.opts.MaxRetries)
		if err := g.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
}

// backoff doubles from BaseBackoff, honouring a larger Retry-After, capped
// at MaxBackoff.
func (g *Generator) backoff(attempt int, err error) time.Duration {
	delay := g.opts.BaseBackoff << attempt
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > delay {
		delay = apiErr.RetryAfter
	}
	if delay > g.opts.MaxBackoff {
		delay = g.opts.MaxBackoff
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
