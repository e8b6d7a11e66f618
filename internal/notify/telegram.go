package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrSendFailed reports a delivery failure to one chat. Sending continues
// to the remaining chats and parts.
type ErrSendFailed struct {
	ChatID string
	Cause  error
}

func (e *ErrSendFailed) Error() string {
	return fmt.Sprintf("notify: send to chat %s: %v", e.ChatID, e.Cause)
}

func (e *ErrSendFailed) Unwrap() error { return e.Cause }

// Notifier delivers messages to a static list of Telegram chats via the
// bot API. DryRun logs instead of sending.
type Notifier struct {
	token   string
	chatIDs []string
	apiBase string
	client  *http.Client
	dryRun  bool
	retries int
	backoff time.Duration
	logger  *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAPIBase overrides the Telegram API base URL. Tests point this at a
// local server.
func WithAPIBase(base string) Option {
	return func(n *Notifier) { n.apiBase = strings.TrimRight(base, "/") }
}

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// WithDryRun disables actual delivery; messages are logged only.
func WithDryRun(dry bool) Option {
	return func(n *Notifier) { n.dryRun = dry }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// WithBackoff tunes the per-part retry count and delay.
func WithBackoff(retries int, delay time.Duration) Option {
	return func(n *Notifier) {
		n.retries = retries
		n.backoff = delay
	}
}

// New creates a Notifier for the given bot token and chat IDs.
func New(token string, chatIDs []string, opts ...Option) *Notifier {
	n := &Notifier{
		token:   token,
		chatIDs: chatIDs,
		apiBase: "https://api.telegram.org",
		client:  &http.Client{Timeout: 15 * time.Second},
		retries: 2,
		backoff: 2 * time.Second,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Broadcast chunks the message and sends every part to every configured
// chat. A failed chat or part is logged and skipped; the first error is
// returned so the caller can record the partial failure.
func (n *Notifier) Broadcast(ctx context.Context, msg string) error {
	if strings.TrimSpace(msg) == "" {
		return nil
	}

	parts := Chunk(msg, chunkBudget)
	if n.dryRun {
		for i, p := range parts {
			n.logger.Info("notify: dry run", "part", i+1, "parts", len(parts), "size", len(p))
			fmt.Println(p)
		}
		return nil
	}

	var firstErr error
	for _, chatID := range n.chatIDs {
		for i, part := range parts {
			if err := n.sendPart(ctx, chatID, part); err != nil {
				n.logger.Warn("notify: part failed",
					"chat", chatID, "part", i+1, "parts", len(parts), "error", err)
				if firstErr == nil {
					firstErr = &ErrSendFailed{ChatID: chatID, Cause: err}
				}
				// Remaining parts for this chat would arrive out of
				// sequence; move on to the next chat.
				break
			}
		}
	}
	return firstErr
}

func (n *Notifier) sendPart(ctx context.Context, chatID, text string) error {
	var lastErr error
	for attempt := 0; attempt <= n.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(n.backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := n.post(ctx, chatID, text); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("all retries exhausted: %w", lastErr)
}

func (n *Notifier) post(ctx context.Context, chatID, text string) error {
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", text)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
