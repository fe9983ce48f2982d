package memories

import "sort"

// DefaultCap is the overall output ceiling of a selection run.
const DefaultCap = 12

// quotaForYears picks how many photos each year may contribute: a few years
// get dense coverage, many years get one photo each, so the total stays
// close to the cap without blowing past it.
func quotaForYears(years int) int {
	switch {
	case years <= 4:
		return 3
	case years <= 6:
		return 2
	default:
		return 1
	}
}

// Select reduces a day/month match set spanning multiple years to at most
// max photos, grouped ascending by year. Within a year, matches from a
// single account are taken in listing order; when two accounts contributed,
// their buckets are interleaved starting with the first-seen (primary)
// account so neither dominates the slice.
//
// Once the running total hits the cap the last year's contribution is
// truncated and selection stops.
func Select(matches []Match, max int) []Match {
	if len(matches) == 0 || max <= 0 {
		return nil
	}

	byYear := make(map[int][]Match)
	var years []int
	for _, m := range matches {
		if _, ok := byYear[m.Year]; !ok {
			years = append(years, m.Year)
		}
		byYear[m.Year] = append(byYear[m.Year], m)
	}
	// Input is year-sorted by contract, but do not rely on it.
	sort.Ints(years)

	quota := quotaForYears(len(years))

	var out []Match
	for _, year := range years {
		for _, m := range pickYear(byYear[year], quota) {
			if len(out) == max {
				return out
			}
			out = append(out, m)
		}
	}
	return out
}

// pickYear chooses up to quota matches from one year's slice, alternating
// between source buckets in first-seen order and draining whatever remains
// when a bucket runs dry.
func pickYear(matches []Match, quota int) []Match {
	var order []string
	buckets := make(map[string][]Match)
	for _, m := range matches {
		if _, ok := buckets[m.Source]; !ok {
			order = append(order, m.Source)
		}
		buckets[m.Source] = append(buckets[m.Source], m)
	}

	if len(order) == 1 {
		if quota > len(matches) {
			quota = len(matches)
		}
		return matches[:quota]
	}

	var picks []Match
	for len(picks) < quota {
		progressed := false
		for _, src := range order {
			if len(picks) == quota {
				break
			}
			if len(buckets[src]) == 0 {
				continue
			}
			picks = append(picks, buckets[src][0])
			buckets[src] = buckets[src][1:]
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return picks
}
