package upload

import (
	"errors"
	"fmt"
	"strings"
)

// MaxFileSize is the largest accepted upload (10 MiB).
const MaxFileSize int64 = 10 * 1024 * 1024

const (
	NoticeImagesOnly    = "Please select image files only."
	NoticeNothingStaged = "Please select at least one file to upload."
)

var (
	// ErrNoImages is returned when none of the selected files is an image.
	ErrNoImages = errors.New("no image files selected")
	// ErrNothingStaged is returned when an upload starts without staged files.
	ErrNothingStaged = errors.New("no files staged for upload")
)

// Selection is the outcome of validating one batch of selected files.
type Selection struct {
	Accepted     []File
	RejectedType int
	RejectedSize int
	maxSize      int64
}

// Notice returns the message shown to the user for rejected oversized files,
// or an empty string when every image was accepted.
func (s Selection) Notice() string {
	if s.RejectedSize == 0 {
		return ""
	}
	return fmt.Sprintf("%d file(s) exceed the %dMB limit and were not selected.",
		s.RejectedSize, s.maxSize/1024/1024)
}

// IsImage reports whether contentType denotes an image.
func IsImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// Validate drops non-image files and files larger than maxSize.
// If no file is an image, ErrNoImages is returned and nothing is accepted.
func Validate(files []File, maxSize int64) (Selection, error) {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}
	selection := Selection{maxSize: maxSize}

	images := make([]File, 0, len(files))
	for _, f := range files {
		if IsImage(f.ContentType()) {
			images = append(images, f)
		} else {
			selection.RejectedType++
		}
	}
	if len(images) == 0 {
		return selection, ErrNoImages
	}

	for _, f := range images {
		if f.Size() > maxSize {
			selection.RejectedSize++
			continue
		}
		selection.Accepted = append(selection.Accepted, f)
	}
	return selection, nil
}
