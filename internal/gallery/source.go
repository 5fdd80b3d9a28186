package gallery

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// JustNowLabel is the upload label given to freshly uploaded images.
	JustNowLabel = "Just now"

	downloadExtension = ".jpg"
)

var (
	ErrUnsupportedSource = errors.New("unsupported image source")

	whitespaceRun = regexp.MustCompile(`\s+`)
)

// SizeLabel renders a byte count the way the gallery displays it, e.g. "1.2 MB".
func SizeLabel(size int64) string {
	return fmt.Sprintf("%.1f MB", float64(size)/1024/1024)
}

// DownloadFileName replaces whitespace runs in title by underscores and appends
// the fixed image extension.
func DownloadFileName(title string) string {
	name := whitespaceRun.ReplaceAllString(title, "_")
	if name == "" {
		name = "image"
	}
	return name + downloadExtension
}

// EncodeDataURL embeds content as a base64 data URL.
func EncodeDataURL(mimeType string, content []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(content)
}

// IsRemoteSource reports whether src references content over http(s).
func IsRemoteSource(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// DecodeDataURL returns the media type and content of an inline data URL.
func DecodeDataURL(src string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(src, "data:")
	if !ok {
		return "", nil, ErrUnsupportedSource
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data url: missing payload separator")
	}

	params := strings.Split(meta, ";")
	mimeType := params[0]
	if mimeType == "" {
		mimeType = "text/plain"
	}
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(p, "base64") {
			isBase64 = true
		}
	}

	if !isBase64 {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return "", nil, fmt.Errorf("failed to unescape data url payload: %w", err)
		}
		return mimeType, []byte(decoded), nil
	}
	content, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data url payload: %w", err)
	}
	return mimeType, content, nil
}
