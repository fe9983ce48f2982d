// Package telegram is a thin typed client for the Telegram Bot API send
// methods the bot uses.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.telegram.org"

const requestTimeout = 30 * time.Second

// Minimum spacing between outbound calls.
const minCallInterval = 50 * time.Millisecond

// MaxGroupSize is the API limit on media items per sendMediaGroup call.
// Callers chunk larger sets.
const MaxGroupSize = 10

// MaxCaptionLength is the API limit on caption length. Longer captions are
// truncated before send.
const MaxCaptionLength = 1024

// Safety margin added on top of a server-specified retry_after wait.
const retryMargin = time.Second

// Media is one photo in a media group.
type Media struct {
	URL     string
	Caption string
}

type Client struct {
	// BaseURL may be overridden before first use, e.g. in tests.
	BaseURL string

	token   string
	chatID  string
	http    *http.Client
	limiter *rate.Limiter
	timer   backoff.Timer // nil means real time
	log     *slog.Logger
}

func New(token, chatID string, log *slog.Logger) (*Client, error) {
	if len(token) < 20 {
		return nil, errors.New("telegram: bot token missing or malformed")
	}
	if chatID == "" {
		return nil, errors.New("telegram: chat id must not be empty")
	}
	log.Info("telegram client ready", "token", maskToken(token), "chat", chatID)
	return &Client{
		BaseURL: defaultBaseURL,
		token:   token,
		chatID:  chatID,
		http:    &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Every(minCallInterval), 1),
		log:     log,
	}, nil
}

// SendMessage sends a plain text message. The text is HTML-escaped, so
// markup in it renders literally.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	return c.call(ctx, "sendMessage", map[string]any{
		"chat_id":    c.chatID,
		"text":       html.EscapeString(text),
		"parse_mode": "HTML",
	})
}

// SendPhoto sends a single photo by URL with an HTML caption.
func (c *Client) SendPhoto(ctx context.Context, url, caption string) error {
	if url == "" {
		return errors.New("telegram: photo has no download url")
	}
	return c.call(ctx, "sendPhoto", map[string]any{
		"chat_id":    c.chatID,
		"photo":      url,
		"caption":    truncateCaption(caption),
		"parse_mode": "HTML",
	})
}

// SendMediaGroup sends up to MaxGroupSize photos as one album. Items
// without a URL are skipped with a warning; if nothing usable remains the
// call fails. The lead caption is attached to the first usable item.
func (c *Client) SendMediaGroup(ctx context.Context, items []Media, leadCaption string) error {
	if len(items) > MaxGroupSize {
		return fmt.Errorf("telegram: media group of %d exceeds limit %d", len(items), MaxGroupSize)
	}

	var media []map[string]any
	for _, item := range items {
		if item.URL == "" {
			c.log.Warn("skipping media without download url")
			continue
		}
		m := map[string]any{
			"type":  "photo",
			"media": item.URL,
		}
		if len(media) == 0 && leadCaption != "" {
			m["caption"] = truncateCaption(leadCaption)
			m["parse_mode"] = "HTML"
		}
		media = append(media, m)
	}
	if len(media) == 0 {
		return errors.New("telegram: no usable media in group")
	}

	return c.call(ctx, "sendMediaGroup", map[string]any{
		"chat_id": c.chatID,
		"media":   media,
	})
}

// retryAfterBackOff waits exactly as long as the server asked, plus a
// margin. The delay is filled in by the operation when it sees a rate-limit
// response.
type retryAfterBackOff struct {
	delay time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration { return b.delay + retryMargin }

func (b *retryAfterBackOff) Reset() {}

// call posts one API method. A rate-limit response is retried once after
// the server-specified delay; everything else fails on the first attempt.
func (c *Client) call(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: marshal: %w", method, err)
	}

	bo := &retryAfterBackOff{}
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/bot"+c.token+"/"+method, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("telegram %s: %w", method, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			var apiErr struct {
				Parameters struct {
					RetryAfter int `json:"retry_after"`
				} `json:"parameters"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&apiErr)
			bo.delay = time.Duration(apiErr.Parameters.RetryAfter) * time.Second
			c.log.Warn("telegram rate limited", "method", method, "retry_after", apiErr.Parameters.RetryAfter)
			return fmt.Errorf("telegram %s: rate limited, retry_after=%d", method, apiErr.Parameters.RetryAfter)
		}
		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
			return backoff.Permanent(fmt.Errorf("telegram %s: HTTP status %d: %s", method, resp.StatusCode, snippet))
		}
		return nil
	}

	return backoff.RetryNotifyWithTimer(op, backoff.WithContext(backoff.WithMaxRetries(bo, 1), ctx), nil, c.timer)
}

func truncateCaption(caption string) string {
	runes := []rune(caption)
	if len(runes) <= MaxCaptionLength {
		return caption
	}
	return string(runes[:MaxCaptionLength-3]) + "..."
}

func maskToken(token string) string {
	if len(token) <= 10 {
		return "***"
	}
	return token[:6] + "..." + token[len(token)-4:]
}
