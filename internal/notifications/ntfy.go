package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"cbir/internal/logging"
)

const userAgent = "cbir-client/0.1.0"

// NtfyOption customizes an Ntfy sink.
type NtfyOption func(*Ntfy)

// WithNtfyHTTPClient overrides the HTTP client used to publish.
func WithNtfyHTTPClient(client *http.Client) NtfyOption {
	return func(n *Ntfy) {
		if client != nil {
			n.client = client
		}
	}
}

// WithNtfyTimeout bounds each publish request.
func WithNtfyTimeout(timeout time.Duration) NtfyOption {
	return func(n *Ntfy) {
		if timeout > 0 {
			n.client = &http.Client{Timeout: timeout}
		}
	}
}

// WithDedupWindow suppresses identical processing error events published
// within window. Other events are always published. Zero disables
// suppression.
func WithDedupWindow(window time.Duration) NtfyOption {
	return func(n *Ntfy) {
		n.window = window
	}
}

// WithNtfyLogger attaches a logger.
func WithNtfyLogger(logger *slog.Logger) NtfyOption {
	return func(n *Ntfy) {
		n.logger = logging.NewComponentLogger(logger, "ntfy")
	}
}

// Ntfy publishes events to an ntfy topic URL.
type Ntfy struct {
	endpoint string
	client   *http.Client
	window   time.Duration
	seen     *cache.Cache
	logger   *slog.Logger
}

// NewNtfy returns a sink publishing to endpoint.
func NewNtfy(endpoint string, opts ...NtfyOption) *Ntfy {
	n := &Ntfy{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logging.NewComponentLogger(nil, "ntfy"),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.window > 0 {
		n.seen = cache.New(n.window, 2*n.window)
	}
	return n
}

// Notify publishes event unless it is a processing error identical to one
// that went out inside the dedup window.
func (n *Ntfy) Notify(ctx context.Context, event Event) error {
	if n == nil || n.endpoint == "" {
		return nil
	}
	if n.seen != nil && event.HasTag(TagProcessing) {
		key := string(event.Level) + "\x00" + event.Title + "\x00" + event.Message
		if err := n.seen.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
			n.logger.Debug("ntfy duplicate suppressed", "title", event.Title)
			return nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(event.Message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if event.Title != "" {
		req.Header.Set("Title", event.Title)
	}
	tags := append([]string{"cbir"}, event.Tags...)
	req.Header.Set("Tags", strings.Join(tags, ","))
	if priority := ntfyPriority(event.Level); priority != "" {
		req.Header.Set("Priority", priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func ntfyPriority(level Level) string {
	switch level {
	case LevelError:
		return "high"
	case LevelInfo:
		return "low"
	default:
		return ""
	}
}
