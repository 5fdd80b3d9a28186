package gallery

import (
	"strings"

	"golang.org/x/text/cases"
)

// Search returns the records whose title, size label or upload label contain
// query, ignoring case. A blank query returns images unchanged.
func Search(images []ImageRecord, query string) []ImageRecord {
	if strings.TrimSpace(query) == "" {
		return images
	}

	// Casers keep state and must not be shared between goroutines
	fold := cases.Fold()
	term := fold.String(query)

	matches := make([]ImageRecord, 0, len(images))
	for _, img := range images {
		if strings.Contains(fold.String(img.Title), term) ||
			strings.Contains(fold.String(img.SizeLabel), term) ||
			strings.Contains(fold.String(img.UploadedAtLabel), term) {
			matches = append(matches, img)
		}
	}
	return matches
}

// FilterFavorites keeps the favorite records, preserving order.
func FilterFavorites(images []ImageRecord) []ImageRecord {
	favorites := make([]ImageRecord, 0, len(images))
	for _, img := range images {
		if img.IsFavorite {
			favorites = append(favorites, img)
		}
	}
	return favorites
}
