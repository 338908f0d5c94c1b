package scanner

import "strings"

var imageExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"bmp":  true,
	"webp": true,
	"tga":  true,
}

var audioExtensions = map[string]bool{
	"ogg":  true,
	"mp3":  true,
	"wav":  true,
	"flac": true,
}

// mimeTypes maps known asset extensions to their MIME type. Unknown
// extensions fall back to content sniffing at preview time.
var mimeTypes = map[string]string{
	"png":        "image/png",
	"jpg":        "image/jpeg",
	"jpeg":       "image/jpeg",
	"gif":        "image/gif",
	"bmp":        "image/bmp",
	"webp":       "image/webp",
	"tga":        "image/x-tga",
	"ogg":        "audio/ogg",
	"mp3":        "audio/mpeg",
	"wav":        "audio/wav",
	"flac":       "audio/flac",
	"json":       "application/json",
	"mcmeta":     "application/json",
	"lang":       "text/plain",
	"txt":        "text/plain",
	"properties": "text/plain",
	"fsh":        "text/plain",
	"vsh":        "text/plain",
	"glsl":       "text/plain",
	"nbt":        "application/octet-stream",
	"bin":        "application/octet-stream",
}

// Extension returns the lowercased extension of a path without the dot.
func Extension(entryPath string) string {
	idx := strings.LastIndexByte(entryPath, '.')
	if idx < 0 || idx == len(entryPath)-1 {
		return ""
	}
	if slash := strings.LastIndexByte(entryPath, '/'); slash > idx {
		return ""
	}
	return strings.ToLower(entryPath[idx+1:])
}

// IsImage reports whether the extension names an image format.
func IsImage(ext string) bool { return imageExtensions[ext] }

// IsAudio reports whether the extension names an audio format.
func IsAudio(ext string) bool { return audioExtensions[ext] }

// MimeFor returns the MIME type for an extension, or "" if unknown.
func MimeFor(ext string) string { return mimeTypes[ext] }
