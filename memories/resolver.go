package memories

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"memories-bot/disk"
)

// Overridable for tests.
var now = time.Now

const exifLayout = "2006:01:02 15:04:05"

// Years below this in a filename are treated as garbage digit runs rather
// than capture dates.
const minFilenameYear = 1990

// Localized date folders look like "15 июня 2019". Month tokens are matched
// by their first three letters.
var pathDateRe = regexp.MustCompile(`(\d{1,2})\s+([А-Яа-яЁё]+)\s+(\d{4})`)

var monthPrefixes = []string{
	"янв", "фев", "мар", "апр", "май", "июн",
	"июл", "авг", "сен", "окт", "ноя", "дек",
}

var nameDateRes = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`),
	regexp.MustCompile(`\b(\d{4})(\d{2})(\d{2})\b`),
	regexp.MustCompile(`\b(\d{2})\.(\d{2})\.(\d{4})\b`),
}

// ResolveDate guesses the capture date of a file from its metadata, trying
// sources in fixed priority order:
//
//  1. the EXIF timestamp reported by the storage API
//  2. a localized "<day> <month> <year>" segment anywhere in the path
//  3. a date embedded in the filename
//  4. the storage-reported created, then modified, timestamps
//
// The first source that yields a valid date wins. A file with no resolvable
// date returns ok=false; that is a non-match, not an error.
func ResolveDate(rec disk.FileRecord) (date time.Time, ok bool) {
	if d, ok := dateFromEXIF(rec.EXIF.DateTime); ok {
		return d, true
	}
	if d, ok := dateFromPath(rec.Path); ok {
		return d, true
	}
	if d, ok := dateFromName(rec.Name); ok {
		return d, true
	}
	if d, ok := dateFromTimestamp(rec.Created); ok {
		return d, true
	}
	if d, ok := dateFromTimestamp(rec.Modified); ok {
		return d, true
	}
	return time.Time{}, false
}

func dateFromEXIF(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(exifLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return midnight(t), true
}

func dateFromPath(path string) (time.Time, bool) {
	m := pathDateRe.FindStringSubmatch(path)
	if m == nil {
		return time.Time{}, false
	}

	monthToken := strings.ToLower(m[2])
	month := 0
	for i, prefix := range monthPrefixes {
		if strings.HasPrefix(monthToken, prefix) {
			month = i + 1
			break
		}
	}
	if month == 0 {
		return time.Time{}, false
	}

	day, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[3])
	return makeDate(year, month, day)
}

// dateFromName tries the filename patterns in order. The first pattern that
// matches text is final: if its date fails validation the whole strategy
// yields nothing, so a partial digit run cannot fall through to a weaker
// pattern and produce a false positive.
func dateFromName(name string) (time.Time, bool) {
	for i, re := range nameDateRes {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}

		var year, month, day int
		if i == 2 { // DD.MM.YYYY
			day, _ = strconv.Atoi(m[1])
			month, _ = strconv.Atoi(m[2])
			year, _ = strconv.Atoi(m[3])
		} else {
			year, _ = strconv.Atoi(m[1])
			month, _ = strconv.Atoi(m[2])
			day, _ = strconv.Atoi(m[3])
		}

		if year < minFilenameYear || year > now().Year() {
			return time.Time{}, false
		}
		return makeDate(year, month, day)
	}
	return time.Time{}, false
}

// dateFromTimestamp parses an ISO-8601 string with the timezone offset and
// sub-second fraction stripped, e.g. "2024-01-15T10:30:00+03:00".
func dateFromTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	if i := strings.Index(s, "+"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i]
	}
	// A "-" after the time part is a negative offset.
	if t := strings.Index(s, "T"); t >= 0 {
		if i := strings.Index(s[t:], "-"); i >= 0 {
			s = s[:t+i]
		}
	}
	s = strings.TrimSuffix(s, "Z")

	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}, false
	}
	return midnight(t), true
}

// makeDate validates that y/m/d is a real calendar date; time.Date would
// silently normalize June 31 to July 1.
func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
