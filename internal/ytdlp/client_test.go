package ytdlp

import (
	"errors"
	"testing"

	"spool/internal/services"
)

func TestParsePlaylistJSON(t *testing.T) {
	raw := `{
		"_type": "playlist",
		"title": "My Mix",
		"entries": [
			{"id": "aaa", "url": "https://example.com/watch?v=aaa", "title": "First", "uploader": "Chan", "upload_date": "20260101", "duration": 120.5},
			{"id": "bbb", "url": "https://example.com/watch?v=bbb", "title": "Second"},
			{"id": "", "url": "https://example.com/watch?v=ccc", "title": "No ID"}
		]
	}`
	playlist, err := ParsePlaylistJSON(raw)
	if err != nil {
		t.Fatalf("ParsePlaylistJSON failed: %v", err)
	}
	if playlist.Title != "My Mix" {
		t.Fatalf("title = %q", playlist.Title)
	}
	// The entry without an id is dropped.
	if len(playlist.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(playlist.Entries))
	}
	first := playlist.Entries[0]
	if first.ID != "aaa" || first.Uploader != "Chan" || first.DurationSeconds != 120 {
		t.Fatalf("unexpected first entry: %#v", first)
	}
}

func TestParsePlaylistJSONSingleVideo(t *testing.T) {
	raw := `{"id": "solo", "webpage_url": "https://example.com/watch?v=solo", "title": "Lone Video", "duration": 60}`
	playlist, err := ParsePlaylistJSON(raw)
	if err != nil {
		t.Fatalf("ParsePlaylistJSON failed: %v", err)
	}
	if len(playlist.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(playlist.Entries))
	}
	entry := playlist.Entries[0]
	if entry.ID != "solo" || entry.URL != "https://example.com/watch?v=solo" || entry.Title != "Lone Video" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if playlist.Title != "Lone Video" {
		t.Fatalf("playlist title = %q", playlist.Title)
	}
}

func TestParsePlaylistJSONEmpty(t *testing.T) {
	if _, err := ParsePlaylistJSON(`{"_type": "playlist", "title": "Empty", "entries": []}`); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := ParsePlaylistJSON(`not json`); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestFormatSelector(t *testing.T) {
	if got := formatSelector("best"); got != "bestvideo+bestaudio/best" {
		t.Fatalf("best = %q", got)
	}
	if got := formatSelector("1080p"); got != "bestvideo[height<=1080]+bestaudio/best[height<=1080]" {
		t.Fatalf("1080p = %q", got)
	}
	if got := formatSelector("bv*+ba"); got != "bv*+ba" {
		t.Fatalf("passthrough = %q", got)
	}
}

func TestSortEntries(t *testing.T) {
	entries := []Entry{
		{ID: "a", UploadDate: "20260301"},
		{ID: "b", UploadDate: "20260101"},
		{ID: "c"},
		{ID: "d", UploadDate: "20260201"},
	}

	playlistOrder := SortEntries(entries, "playlist")
	if playlistOrder[0].ID != "a" || playlistOrder[3].ID != "d" {
		t.Fatalf("playlist order changed: %#v", playlistOrder)
	}

	reversed := SortEntries(entries, "reverse")
	if reversed[0].ID != "d" || reversed[3].ID != "a" {
		t.Fatalf("reverse order wrong: %#v", reversed)
	}

	newest := SortEntries(entries, "newest")
	if newest[0].ID != "a" || newest[1].ID != "d" || newest[2].ID != "b" || newest[3].ID != "c" {
		t.Fatalf("newest order wrong: %#v", newest)
	}

	oldest := SortEntries(entries, "oldest")
	if oldest[0].ID != "b" || oldest[1].ID != "d" || oldest[2].ID != "a" || oldest[3].ID != "c" {
		t.Fatalf("oldest order wrong: %#v", oldest)
	}

	// Input slice untouched.
	if entries[0].ID != "a" {
		t.Fatalf("input mutated: %#v", entries)
	}
}
