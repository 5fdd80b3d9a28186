package imageinfo

import (
	"bytes"
	"strings"
)

// isSVGData performs a lightweight detection of SVG content from raw bytes.
// It checks for "<svg" tag or SVG namespace in the initial portion of the data.
func isSVGData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	// Only inspect the first ~4KB for detection
	n := min(len(data), 4096)
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.Contains(header, []byte("<svg")) ||
		bytes.Contains(header, []byte("xmlns=\"http://www.w3.org/2000/svg\"")) ||
		bytes.Contains(header, []byte("xmlns='http://www.w3.org/2000/svg'"))
}

// parseSvgExplicitSize extracts the width and height attributes of the root <svg> tag.
func parseSvgExplicitSize(data []byte) (int, int, bool) {
	n := min(len(data), 8192)
	s := strings.ToLower(string(data[:n]))

	i := strings.Index(s, "<svg")
	if i < 0 {
		return 0, 0, false
	}
	tag := s[i:]
	if j := strings.Index(tag, ">"); j >= 0 {
		tag = tag[:j]
	}

	w, wOk := parseNumericAttr(tag, "width")
	h, hOk := parseNumericAttr(tag, "height")
	if wOk && hOk {
		return w, h, true
	}
	return 0, 0, false
}

// parseNumericAttr extracts the leading integer of a quoted attribute, e.g. width="123px".
func parseNumericAttr(tag, attr string) (int, bool) {
	pos := -1
	for _, sep := range []string{" ", "\t", "\n", "\r"} {
		if p := strings.Index(tag, sep+attr+"="); p >= 0 {
			pos = p + len(sep) + len(attr) + 1
			break
		}
	}
	if pos < 0 || pos >= len(tag) {
		return 0, false
	}

	quote := tag[pos]
	if quote != '"' && quote != '\'' {
		return 0, false
	}
	val := tag[pos+1:]
	if end := strings.IndexByte(val, quote); end >= 0 {
		val = val[:end]
	}

	num := 0
	found := false
	for i := 0; i < len(val); i++ {
		ch := val[i]
		if ch >= '0' && ch <= '9' {
			found = true
			num = num*10 + int(ch-'0')
		} else if found {
			break
		}
	}
	if !found || num <= 0 {
		return 0, false
	}
	return num, true
}
