package backend

import "strings"

// Links builds backend URLs. All builders are pure string functions of the base
// address and never fail.
type Links struct {
	base string
}

func NewLinks(baseURL string) *Links {
	return &Links{base: strings.TrimRight(baseURL, "/")}
}

func (l *Links) Base() string {
	return l.base
}

func (l *Links) URL(path string) string {
	return l.base + path
}

// RealtimeFeed is only meaningful while a webcam session runs.
func (l *Links) RealtimeFeed() string {
	return l.URL(PathRealtimeFeed)
}

func (l *Links) VODFeed() string {
	return l.URL(PathVODFeed)
}

func (l *Links) ProcessedVideo() string {
	return l.URL(PathDownloadProcessedVideo)
}

func (l *Links) DetectionLog() string {
	return l.URL(PathDownloadDetectionLog)
}

// Image keeps only the part of imagePath after the last slash. It does not
// sanitize the result any further.
func (l *Links) Image(imagePath string) string {
	return l.URL(PathImages + Filename(imagePath))
}

func (l *Links) PastVideo(videoPath string) string {
	return l.URL(PathDownloadPastVideo + videoPath)
}

func (l *Links) PastLog(csvPath string) string {
	return l.URL(PathDownloadPastLog + csvPath)
}

// Filename returns the last slash-separated segment of p.
func Filename(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}

	return p
}
