package diagnosis

import (
	"encoding/base64"
	"net/http"
	"strings"
)

const DefaultMimeType = "image/jpeg"

// Image is a decoded upload.
type Image struct {
	Data     []byte
	MimeType string
}

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// DecodeImage accepts bare base64 or a full data URI. The mime type comes from
// the data URI header, then content sniffing, then fallback.
func DecodeImage(input, fallback string) (Image, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Image{}, ErrNoImage
	}
	var headerMime string
	if strings.HasPrefix(input, "data:") {
		comma := strings.IndexByte(input, ',')
		if comma == -1 {
			return Image{}, ErrInvalidImage
		}
		header := input[len("data:"):comma]
		input = input[comma+1:]
		if !strings.HasSuffix(header, ";base64") {
			return Image{}, ErrInvalidImage
		}
		headerMime = strings.TrimSpace(strings.TrimSuffix(header, ";base64"))
	}
	input = stripWhitespace(input)
	if input == "" {
		return Image{}, ErrNoImage
	}
	var data []byte
	for _, enc := range base64Encodings {
		decoded, err := enc.DecodeString(input)
		if err == nil {
			data = decoded
			break
		}
	}
	if len(data) == 0 {
		return Image{}, ErrInvalidImage
	}
	return Image{Data: data, MimeType: resolveMime(headerMime, data, fallback)}, nil
}

func resolveMime(header string, data []byte, fallback string) string {
	if strings.HasPrefix(header, "image/") {
		return header
	}
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return DefaultMimeType
}

func stripWhitespace(s string) string {
	if !strings.ContainsAny(s, " \t\r\n") {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
