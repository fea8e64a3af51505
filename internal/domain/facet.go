package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
)

const (
	DiscoverFacetLimit = 20
	StatisticsTopLimit = 10
	YearHistogramLimit = 20
	TrailingMonths     = 12
	DefaultYearSpan    = 10
	valueSeparator     = ";"
	monthBucketLayout  = "2006-01"
)

type FacetEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SplitValues breaks a multi-valued field into its trimmed, non-empty parts.
func SplitValues(value string) []string {
	parts := strings.Split(value, valueSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CountTokens builds a frequency table over every sub-value of values.
// Entries are ordered by count descending, then name ascending, so the
// result does not depend on the order of values.
func CountTokens(values []string, normalize func(string) string) []FacetEntry {
	freq := make(map[string]int)
	for _, v := range values {
		for _, token := range SplitValues(v) {
			freq[normalize(token)]++
		}
	}
	out := make([]FacetEntry, 0, len(freq))
	for name, count := range freq {
		out = append(out, FacetEntry{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CountFacet is the case-insensitive counting used for author and subject facets.
func CountFacet(values []string) []FacetEntry {
	return CountTokens(values, strings.ToLower)
}

func Top(entries []FacetEntry, n int) []FacetEntry {
	if n >= 0 && len(entries) > n {
		return entries[:n]
	}
	return entries
}

// TitleWords upper-cases the first letter of every space separated word.
func TitleWords(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		words[i] = CapitalizeFirst(w, false)
	}
	return strings.Join(words, " ")
}

// CapitalizeFirst upper-cases the first rune; with lowerRest the remainder is
// lower-cased, otherwise left untouched.
func CapitalizeFirst(s string, lowerRest bool) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	rest := string(r[1:])
	if lowerRest {
		rest = strings.ToLower(rest)
	}
	return string(unicode.ToUpper(r[0])) + rest
}

type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// ResolveYearRange falls back to the last DefaultYearSpan years when the
// repository has no parsable issue dates.
func ResolveYearRange(minYear, maxYear *int, now time.Time) YearRange {
	out := YearRange{Min: now.Year() - DefaultYearSpan, Max: now.Year()}
	if minYear != nil && *minYear > 0 {
		out.Min = *minYear
	}
	if maxYear != nil && *maxYear > 0 {
		out.Max = *maxYear
	}
	return out
}

type MonthBucket struct {
	Month string `json:"month"`
	Value int64  `json:"value"`
}

type Observation struct {
	At     time.Time
	Weight int64
}

// WindowStart is the first instant of the trailing window: midnight UTC on
// the first day of the month TrailingMonths-1 months before now.
func WindowStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month()-TrailingMonths+1, 1, 0, 0, 0, 0, time.UTC)
}

// MonthlySeries returns exactly TrailingMonths buckets ending with the month
// of now. Observations outside the window are ignored.
func MonthlySeries(now time.Time, observations []Observation) []MonthBucket {
	start := WindowStart(now)
	out := make([]MonthBucket, TrailingMonths)
	index := make(map[string]int, TrailingMonths)
	for i := range out {
		month := start.AddDate(0, i, 0).Format(monthBucketLayout)
		out[i] = MonthBucket{Month: month}
		index[month] = i
	}
	for _, o := range observations {
		if i, ok := index[o.At.UTC().Format(monthBucketLayout)]; ok {
			out[i].Value += o.Weight
		}
	}
	return out
}

// MonthRange returns [start of now's month, start of next month) in UTC.
func MonthRange(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// YearBounds converts a year range into inclusive dc.date.issued bounds.
func YearBounds(startYear, endYear int) (string, string) {
	return fmt.Sprintf("%04d-01-01", startYear), fmt.Sprintf("%04d-12-31", endYear)
}

// RankCollections orders collections by published items, then downloads,
// both descending, and keeps the first n.
func RankCollections(list []CollectionActivity, n int) []CollectionActivity {
	out := append([]CollectionActivity(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PublishedItems != out[j].PublishedItems {
			return out[i].PublishedItems > out[j].PublishedItems
		}
		if out[i].Downloads != out[j].Downloads {
			return out[i].Downloads > out[j].Downloads
		}
		return out[i].CollectionID < out[j].CollectionID
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
