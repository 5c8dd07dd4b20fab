// Package ytdlp wraps the yt-dlp command line tool used to acquire audio
// artifacts. The Client interface exists so the pipeline can be exercised in
// tests without spawning processes.
package ytdlp
