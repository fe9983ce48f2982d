package memories

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memories-bot/disk"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rec(name, path, created string) disk.FileRecord {
	return disk.FileRecord{Name: name, Path: path, File: "https://dl/" + name, Created: created}
}

type listerMock struct {
	t       *testing.T
	expects []listExpect
}

type listExpect struct {
	folder  string // empty means ListImages
	offset  int
	limit   int
	listing disk.Listing
	err     error
}

func mockLister(t *testing.T) *listerMock {
	return &listerMock{t: t}
}

func (m *listerMock) expectImages(offset, limit int, listing disk.Listing, err error) *listerMock {
	m.expects = append(m.expects, listExpect{offset: offset, limit: limit, listing: listing, err: err})
	return m
}

func (m *listerMock) expectFolder(folder string, offset, limit int, listing disk.Listing, err error) *listerMock {
	m.expects = append(m.expects, listExpect{folder: folder, offset: offset, limit: limit, listing: listing, err: err})
	return m
}

func (m *listerMock) next(folder string, offset, limit int) (disk.Listing, error) {
	if len(m.expects) == 0 {
		m.t.Fatalf("unexpected listing call folder=%q offset=%d", folder, offset)
	}
	exp := m.expects[0]
	m.expects = m.expects[1:]

	if exp.folder != folder {
		m.t.Errorf("expected folder %q, got %q", exp.folder, folder)
	}
	if exp.offset != offset {
		m.t.Errorf("expected offset %d, got %d", exp.offset, offset)
	}
	if exp.limit != limit {
		m.t.Errorf("expected limit %d, got %d", exp.limit, limit)
	}
	return exp.listing, exp.err
}

func (m *listerMock) ListImages(_ context.Context, offset, limit int) (disk.Listing, error) {
	return m.next("", offset, limit)
}

func (m *listerMock) ListFolder(_ context.Context, path string, offset, limit int) (disk.Listing, error) {
	return m.next(path, offset, limit)
}

func TestFindValidatesQuery(t *testing.T) {
	f := &Finder{Disk: mockLister(t), Log: testLogger()}

	_, err := f.Find(context.Background(), 0, 6)
	assert.ErrorIs(t, err, ErrInvalidQuery)
	_, err = f.Find(context.Background(), 32, 6)
	assert.ErrorIs(t, err, ErrInvalidQuery)
	_, err = f.Find(context.Background(), 15, 0)
	assert.ErrorIs(t, err, ErrInvalidQuery)
	_, err = f.Find(context.Background(), 15, 13)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

// Feb 31 is a legal query that simply matches nothing.
func TestFindImpossibleDateIsNotAnError(t *testing.T) {
	lister := mockLister(t).expectImages(0, 2, disk.Listing{}, nil)
	f := &Finder{Disk: lister, Log: testLogger(), PageSize: 2}

	matches, err := f.Find(context.Background(), 31, 2)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFindPagesUntilShortPage(t *testing.T) {
	lister := mockLister(t).expectImages(0, 2, disk.Listing{
		Items: []disk.FileRecord{
			rec("a.jpg", "disk:/a.jpg", "2021-06-15T10:00:00+03:00"),
			rec("b.jpg", "disk:/b.jpg", "2020-01-01T10:00:00+03:00"),
		},
		HasMore: true,
	}, nil).expectImages(2, 2, disk.Listing{
		Items: []disk.FileRecord{
			rec("c.jpg", "disk:/c.jpg", "2019-06-15T10:00:00+03:00"),
		},
	}, nil)
	f := &Finder{Disk: lister, Source: "primary", Log: testLogger(), PageSize: 2}

	matches, err := f.Find(context.Background(), 15, 6)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// Ascending by year.
	assert.Equal(t, "c.jpg", matches[0].Name)
	assert.Equal(t, 2019, matches[0].Year)
	assert.Equal(t, "a.jpg", matches[1].Name)
	assert.Equal(t, 2021, matches[1].Year)
	assert.Equal(t, "primary", matches[0].Source)
}

func TestFindSkipsVideosDirsAndMissingURLs(t *testing.T) {
	noURL := disk.FileRecord{Name: "nourl.jpg", Path: "disk:/nourl.jpg", Created: "2021-06-15T10:00:00+03:00"}
	lister := mockLister(t).expectImages(0, 10, disk.Listing{
		Items: []disk.FileRecord{
			rec("clip.MP4", "disk:/clip.MP4", "2021-06-15T10:00:00+03:00"),
			{Name: "15 июня 2019", Path: "disk:/15 июня 2019", Type: "dir"},
			noURL,
			rec("keep.jpg", "disk:/keep.jpg", "2021-06-15T10:00:00+03:00"),
		},
	}, nil)
	f := &Finder{Disk: lister, Log: testLogger(), PageSize: 10}

	matches, err := f.Find(context.Background(), 15, 6)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "keep.jpg", matches[0].Name)
}

func TestFindTransportErrorKeepsPartialResults(t *testing.T) {
	lister := mockLister(t).expectImages(0, 1, disk.Listing{
		Items:   []disk.FileRecord{rec("a.jpg", "disk:/a.jpg", "2021-06-15T10:00:00+03:00")},
		HasMore: true,
	}, nil).expectImages(1, 1, disk.Listing{}, errors.New("timeout"))
	f := &Finder{Disk: lister, Log: testLogger(), PageSize: 1}

	matches, err := f.Find(context.Background(), 15, 6)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a.jpg", matches[0].Name)
}

func TestFindUnionsFoldersAndDeduplicatesByPath(t *testing.T) {
	shared := rec("both.jpg", "disk:/album/both.jpg", "2021-06-15T10:00:00+03:00")
	lister := mockLister(t).expectImages(0, 10, disk.Listing{
		Items: []disk.FileRecord{shared},
	}, nil).expectFolder("disk:/album", 0, 10, disk.Listing{
		Items: []disk.FileRecord{
			shared,
			rec("extra.jpg", "disk:/album/extra.jpg", "2019-06-15T10:00:00+03:00"),
		},
	}, nil)
	f := &Finder{Disk: lister, Folders: []string{"disk:/album"}, Log: testLogger(), PageSize: 10}

	matches, err := f.Find(context.Background(), 15, 6)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "extra.jpg", matches[0].Name)
	assert.Equal(t, "both.jpg", matches[1].Name)
}

// Two runs over the same fixture produce identical output.
func TestFindIsDeterministic(t *testing.T) {
	fixture := disk.Listing{Items: []disk.FileRecord{
		rec("a.jpg", "disk:/a.jpg", "2021-06-15T10:00:00+03:00"),
		rec("b.jpg", "disk:/b.jpg", "2019-06-15T10:00:00+03:00"),
	}}

	var runs [][]Match
	for i := 0; i < 2; i++ {
		lister := mockLister(t).expectImages(0, 10, fixture, nil)
		f := &Finder{Disk: lister, Log: testLogger(), PageSize: 10}
		matches, err := f.Find(context.Background(), 15, 6)
		require.NoError(t, err)
		runs = append(runs, matches)
	}
	assert.Equal(t, runs[0], runs[1])
}
