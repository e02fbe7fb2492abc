//go:build windows

package audio

// buildFFmpegCaptureArgs constructs FFmpeg arguments for mono audio capture
// on Windows. -nostdin is NOT used here to allow graceful shutdown via the
// 'q' command.
func buildFFmpegCaptureArgs(inputFormat, device string) []string {
	return []string{
		"-f", inputFormat,
		"-i", device,
		"-hide_banner",
		"-loglevel", "warning",
		"-vn",
		"-f", "s16le",
		"-ac", "1",
		"-ar", "48000",
		"pipe:1",
	}
}
