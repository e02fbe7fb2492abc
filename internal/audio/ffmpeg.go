//go:build !linux && !windows

package audio

// buildFFmpegCaptureArgs constructs FFmpeg arguments for mono audio capture.
func buildFFmpegCaptureArgs(inputFormat, device string) []string {
	return []string{
		"-f", inputFormat,
		"-i", device,
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-vn",
		"-f", "s16le",
		"-ac", "1",
		"-ar", "48000",
		"pipe:1",
	}
}
