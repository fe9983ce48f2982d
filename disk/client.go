// Package disk is a thin typed client for the Yandex.Disk REST API,
// covering only the listing endpoints the bot consumes.
package disk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://cloud-api.yandex.net/v1/disk"

const requestTimeout = 30 * time.Second

// Minimum spacing between outbound calls.
const minCallInterval = 50 * time.Millisecond

// FileRecord is the metadata snapshot of one remote file as reported by the
// storage API. Every field except Name and Path may be absent.
type FileRecord struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	File     string `json:"file"` // download URL, empty means the file is unusable
	Created  string `json:"created"`
	Modified string `json:"modified"`
	Size     int64  `json:"size"`
	Type     string `json:"type"` // "file" or "dir" in folder listings
	EXIF     EXIF   `json:"exif"`
}

type EXIF struct {
	DateTime string `json:"date_time"`
}

// Listing is one page of results. HasMore reports whether another page may
// exist; a page shorter than the requested limit is the last one.
type Listing struct {
	Items   []FileRecord
	HasMore bool
}

type Client struct {
	// BaseURL may be overridden before first use, e.g. in tests.
	BaseURL string

	token   string
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

func New(token string, log *slog.Logger) (*Client, error) {
	if len(token) < 20 {
		return nil, errors.New("disk: token missing or malformed")
	}
	log.Info("disk client ready", "token", maskToken(token))
	return &Client{
		BaseURL: defaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Every(minCallInterval), 1),
		log:     log,
	}, nil
}

// ListImages fetches one page of the flat file index, filtered server-side
// to image media.
func (c *Client) ListImages(ctx context.Context, offset, limit int) (Listing, error) {
	q := url.Values{}
	q.Set("media_type", "image")
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var body struct {
		Items []FileRecord `json:"items"`
	}
	if err := c.get(ctx, "/resources/files", q, &body); err != nil {
		return Listing{}, err
	}
	return Listing{Items: body.Items, HasMore: len(body.Items) == limit}, nil
}

// ListFolder fetches one page of a named folder. The listing includes
// sub-directories; callers filter on FileRecord.Type. A path that does not
// exist or is inaccessible is an empty listing, not an error.
func (c *Client) ListFolder(ctx context.Context, path string, offset, limit int) (Listing, error) {
	q := url.Values{}
	q.Set("path", path)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var body struct {
		Embedded struct {
			Items []FileRecord `json:"items"`
		} `json:"_embedded"`
	}
	err := c.get(ctx, "/resources", q, &body)
	if errors.Is(err, errNotFound) {
		c.log.Debug("folder not found", "path", path)
		return Listing{}, nil
	}
	if err != nil {
		return Listing{}, err
	}
	return Listing{Items: body.Embedded.Items, HasMore: len(body.Embedded.Items) == limit}, nil
}

var errNotFound = errors.New("disk: not found")

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "OAuth "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("disk %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("disk %s: HTTP status %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("disk %s: decode: %w", path, err)
	}
	return nil
}

func maskToken(token string) string {
	if len(token) <= 10 {
		return "***"
	}
	return token[:6] + "..." + token[len(token)-4:]
}
