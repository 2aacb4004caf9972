package table

import (
	"sort"
	"strconv"
	"strings"
)

const otherRoom = "Other"

// FormatDisplay renders tables grouped by room, e.g. "Main 1-3, Patio 5, 7".
// Rooms keep their first-seen order; tables without a room are printed bare.
func FormatDisplay(tables []CartTable) string {
	if len(tables) == 0 {
		return ""
	}

	var rooms []string
	byRoom := make(map[string][]string)
	for _, t := range tables {
		room := t.RoomLabel
		if room == "" {
			room = otherRoom
		}
		if _, ok := byRoom[room]; !ok {
			rooms = append(rooms, room)
		}
		byRoom[room] = append(byRoom[room], t.Number)
	}

	parts := make([]string, 0, len(rooms))
	for _, room := range rooms {
		formatted := formatNumbers(byRoom[room])
		if room == otherRoom {
			parts = append(parts, formatted)
			continue
		}
		parts = append(parts, room+" "+formatted)
	}
	return strings.Join(parts, ", ")
}

// formatNumbers collapses numeric table numbers into ranges and falls back to
// a sorted join when any number is not an integer.
func formatNumbers(numbers []string) string {
	ints := make([]int, 0, len(numbers))
	for _, n := range numbers {
		v, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			sorted := append([]string(nil), numbers...)
			sort.Strings(sorted)
			return strings.Join(sorted, ", ")
		}
		ints = append(ints, v)
	}
	return FormatNumberRanges(ints)
}

// FormatNumberRanges renders [1 2 3 5 7 8] as "1-3, 5, 7-8". Duplicates are dropped.
func FormatNumberRanges(numbers []int) string {
	if len(numbers) == 0 {
		return ""
	}

	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)

	var (
		ranges     []string
		start, end = sorted[0], sorted[0]
	)
	flush := func() {
		if start == end {
			ranges = append(ranges, strconv.Itoa(start))
		} else {
			ranges = append(ranges, strconv.Itoa(start)+"-"+strconv.Itoa(end))
		}
	}

	for _, n := range sorted[1:] {
		switch {
		case n == end:
			continue
		case n == end+1:
			end = n
		default:
			flush()
			start, end = n, n
		}
	}
	flush()

	return strings.Join(ranges, ", ")
}
