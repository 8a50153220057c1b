package mimetypes

import "github.com/gabriel-vasile/mimetype"

type MIME string

const (
	Unknown   MIME = "unknown"
	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWebP MIME = "image/webp"
)

var allowedAvatars = []MIME{ImagePNG, ImageJPEG, ImageGIF, ImageWebP}

func (m MIME) String() string {
	return string(m)
}

// Extension returns the canonical file extension for an accepted type,
// dot included.
func (m MIME) Extension() string {
	switch m {
	case ImagePNG:
		return ".png"
	case ImageJPEG:
		return ".jpg"
	case ImageGIF:
		return ".gif"
	case ImageWebP:
		return ".webp"
	default:
		return ""
	}
}

// DetectAvatar sniffs uploaded bytes and reports whether the detected
// type is an accepted avatar image. The client-declared content type is
// never trusted.
func DetectAvatar(data []byte) (MIME, bool) {
	detected := mimetype.Detect(data)
	for _, m := range allowedAvatars {
		if detected.Is(string(m)) {
			return m, true
		}
	}
	return MIME(detected.String()), false
}
