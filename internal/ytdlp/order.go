package ytdlp

import "sort"

// SortEntries arranges playlist entries according to the queue's download
// order. "playlist" keeps the source order, "reverse" flips it, and
// "newest"/"oldest" sort by upload date where known. Entries without an
// upload date keep their relative playlist position at the end.
func SortEntries(entries []Entry, order string) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)

	switch order {
	case "reverse":
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	case "newest":
		sortByUploadDate(out, true)
	case "oldest":
		sortByUploadDate(out, false)
	}
	return out
}

func sortByUploadDate(entries []Entry, newestFirst bool) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].UploadDate, entries[j].UploadDate
		if a == "" || b == "" {
			// Dated entries sort before undated ones.
			return a != "" && b == ""
		}
		if newestFirst {
			return a > b
		}
		return a < b
	})
}
