// Package urlkind classifies resolved resource URLs as direct downloads or
// regular page content, so the access page can show a "save your file" flow
// instead of a redirect. Pure string heuristics, no network probing.
package urlkind

import "strings"

// Extensions that indicate a file download rather than a page.
var downloadExtensions = []string{
	".zip", ".rar", ".7z", ".tar", ".gz",
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".mp3", ".mp4", ".wav", ".avi", ".mov", ".mkv",
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".psd", ".ai",
	".exe", ".dmg", ".app", ".apk",
	".csv", ".json", ".xml", ".sql",
}

// Hosts and query fragments used by common file-sharing services.
var downloadPatterns = []string{
	"download",
	"dl=1",
	"export=download",
	"/uc?",
	"dropbox.com",
	"drive.google.com",
}

// IsDownload reports whether url likely triggers a file download.
func IsDownload(url string) bool {
	lower := strings.ToLower(url)
	for _, ext := range downloadExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	for _, p := range downloadPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
