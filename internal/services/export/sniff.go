package export

import "github.com/gabriel-vasile/mimetype"

// sniffMime detects a MIME type from content when the extension map
// has no answer.
func sniffMime(data []byte) string {
	return mimetype.Detect(data).String()
}
