package download

import (
	"fmt"
	"strings"
)

// TemplateData carries the values available to filename templates.
type TemplateData struct {
	Index      int
	Title      string
	Uploader   string
	UploadDate string
	Playlist   string
	ID         string
}

// DefaultTemplate is used when neither the queue nor the config supplies one.
const DefaultTemplate = "{index} - {title}"

// RenderFilename expands a filename template. Supported placeholders:
// {index} {title} {uploader} {upload_date} {playlist} {id}. The index is
// one-based and zero-padded to three digits. The result is a bare filename
// without extension; path separators and other unsafe characters are
// replaced so the value stays a single path component.
func RenderFilename(template string, data TemplateData) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}

	replacer := strings.NewReplacer(
		"{index}", fmt.Sprintf("%03d", data.Index),
		"{title}", data.Title,
		"{uploader}", data.Uploader,
		"{upload_date}", data.UploadDate,
		"{playlist}", data.Playlist,
		"{id}", data.ID,
	)
	name := sanitizeFilename(replacer.Replace(template))
	if name == "" {
		if data.ID != "" {
			return sanitizeFilename(data.ID)
		}
		return "download"
	}
	return name
}

// sanitizeFilename replaces characters that are path separators or otherwise
// unsafe on common filesystems, then trims leading/trailing dots and spaces.
func sanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			b.WriteRune('_')
		default:
			if r < 0x20 {
				b.WriteRune('_')
			} else {
				b.WriteRune(r)
			}
		}
	}
	cleaned := strings.Trim(b.String(), ". ")

	// Keep names well under filesystem limits, leaving room for extensions.
	const maxLen = 200
	if len(cleaned) > maxLen {
		cleaned = strings.Trim(cleaned[:maxLen], ". ")
	}
	return cleaned
}
