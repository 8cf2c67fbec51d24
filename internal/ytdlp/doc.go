// Package ytdlp adapts the yt-dlp wrapper into the narrow interfaces the
// rest of spool consumes: playlist resolution for queue ingestion and
// single-item downloads for the executor.
package ytdlp
