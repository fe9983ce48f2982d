// Package memories implements the core of the bot: deciding which files
// were taken "on this day" in past years and which of those to publish.
package memories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"memories-bot/disk"
)

// ErrInvalidQuery reports an out-of-range day or month.
var ErrInvalidQuery = errors.New("invalid query")

const defaultPageSize = 1000

var videoExts = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".avi":  {},
	".mkv":  {},
	".wmv":  {},
	".webm": {},
	".3gp":  {},
	".m4v":  {},
}

// Match is a file whose resolved capture date landed on the queried day and
// month.
type Match struct {
	disk.FileRecord
	Date   time.Time
	Year   int
	Source string // which account it came from, when several are configured
}

// Lister is the slice of the storage client the finder needs.
type Lister interface {
	ListImages(ctx context.Context, offset, limit int) (disk.Listing, error)
	ListFolder(ctx context.Context, path string, offset, limit int) (disk.Listing, error)
}

type Finder struct {
	Disk    Lister
	Folders []string // extra album folders scanned on top of the flat index
	Source  string   // tag stamped on every match
	Log     *slog.Logger

	// PageSize defaults to defaultPageSize when zero.
	PageSize int
}

// Find returns all photos taken on the given day and month in any year,
// deduplicated by path and sorted ascending by year. Transport failures
// stop the scan early and whatever was accumulated is returned; the query
// itself is validated up front.
//
// No day-in-month cross-check is done: day=31, month=2 is a valid query
// that matches nothing.
func (f *Finder) Find(ctx context.Context, day, month int) ([]Match, error) {
	if day < 1 || day > 31 {
		return nil, fmt.Errorf("%w: day must be 1-31, got %d", ErrInvalidQuery, day)
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be 1-12, got %d", ErrInvalidQuery, month)
	}

	seen := make(map[string]struct{})
	var matches []Match

	matches = f.scan(ctx, day, month, seen, matches, func(ctx context.Context, offset, limit int) (disk.Listing, error) {
		return f.Disk.ListImages(ctx, offset, limit)
	})
	for _, folder := range f.Folders {
		matches = f.scan(ctx, day, month, seen, matches, func(ctx context.Context, offset, limit int) (disk.Listing, error) {
			return f.Disk.ListFolder(ctx, folder, offset, limit)
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Year < matches[j].Year })

	f.Log.Info("search done", "day", day, "month", month, "matches", len(matches))
	return matches, nil
}

// scan pages through one listing source, appending matches. Paging stops on
// the first short or empty page, or early on a transport error.
func (f *Finder) scan(
	ctx context.Context,
	day, month int,
	seen map[string]struct{},
	matches []Match,
	page func(ctx context.Context, offset, limit int) (disk.Listing, error),
) []Match {
	limit := f.PageSize
	if limit == 0 {
		limit = defaultPageSize
	}

	offset := 0
	scanned := 0
	for {
		listing, err := page(ctx, offset, limit)
		if err != nil {
			f.Log.Error("listing failed, keeping partial results", "offset", offset, "err", err)
			return matches
		}
		if len(listing.Items) == 0 {
			return matches
		}
		scanned += len(listing.Items)
		f.Log.Debug("page scanned", "offset", offset, "total", scanned)

		for _, rec := range listing.Items {
			if m, ok := f.consider(rec, day, month, seen); ok {
				matches = append(matches, m)
			}
		}

		if !listing.HasMore {
			return matches
		}
		offset += limit
	}
}

func (f *Finder) consider(rec disk.FileRecord, day, month int, seen map[string]struct{}) (Match, bool) {
	if rec.Type == "dir" {
		return Match{}, false
	}
	if _, ok := videoExts[strings.ToLower(filepath.Ext(rec.Name))]; ok {
		return Match{}, false
	}

	date, ok := ResolveDate(rec)
	if !ok || date.Day() != day || int(date.Month()) != month {
		return Match{}, false
	}

	if rec.File == "" {
		f.Log.Warn("match has no download url, skipping", "name", rec.Name)
		return Match{}, false
	}
	if _, dup := seen[rec.Path]; dup {
		return Match{}, false
	}
	seen[rec.Path] = struct{}{}

	return Match{
		FileRecord: rec,
		Date:       date,
		Year:       date.Year(),
		Source:     f.Source,
	}, true
}
