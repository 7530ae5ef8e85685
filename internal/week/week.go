// package week implements ISO-8601 week identifiers ("2026-W05") and the
// deterministic file naming used for generated weekly PDFs.
package week

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var idPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// CurrentID returns the week identifier for the given instant.
func CurrentID(now time.Time) string {
	year, wk := now.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, wk)
}

// Parse splits a week identifier into its ISO year and week number.
func Parse(weekID string) (year, wk int, err error) {
	m := idPattern.FindStringSubmatch(weekID)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid week id %q: want YYYY-Www", weekID)
	}

	year, _ = strconv.Atoi(m[1])

	wk, _ = strconv.Atoi(m[2])
	if wk < 1 || wk > 53 {
		return 0, 0, fmt.Errorf("invalid week id %q: week out of range", weekID)
	}

	return year, wk, nil
}

// Date returns the date of the given ISO weekday (1=Monday .. 7=Sunday)
// within the identified week.
func Date(weekID string, weekday int) (time.Time, error) {
	year, wk, err := Parse(weekID)
	if err != nil {
		return time.Time{}, err
	}

	// January 4 always falls in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)

	isoWeekday := int(jan4.Weekday())
	if isoWeekday == 0 {
		isoWeekday = 7
	}

	monday := jan4.AddDate(0, 0, 1-isoWeekday)

	return monday.AddDate(0, 0, (wk-1)*7+weekday-1), nil
}

// Range returns the Monday and Sunday dates of the identified week.
func Range(weekID string) (start, end time.Time, err error) {
	start, err = Date(weekID, 1)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	end = start.AddDate(0, 0, 6)

	return start, end, nil
}

// Label formats a week as a human-readable period, e.g. "26/01 to 01/02/2026".
func Label(weekID string) (string, error) {
	start, end, err := Range(weekID)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s to %s", start.Format("02/01"), end.Format("02/01/2006")), nil
}

// FileName derives the deterministic PDF file name for a scope. The base is
// keyed by the week's Friday so files sort chronologically on disk:
// "<YYYY_MM_DD>-w<WW>-<project>[-<team>]". It returns the base (used as the
// document title) and the ".pdf" file name.
func FileName(weekID, projectSlug, teamSlug string) (base, name string, err error) {
	friday, err := Date(weekID, 5)
	if err != nil {
		return "", "", err
	}

	_, wk, _ := Parse(weekID)

	base = fmt.Sprintf("%s-w%02d-%s", friday.Format("2006_01_02"), wk, projectSlug)
	if teamSlug != "" {
		base = base + "-" + teamSlug
	}

	return base, base + ".pdf", nil
}
