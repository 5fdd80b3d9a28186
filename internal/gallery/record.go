package gallery

// ImageRecord is one user-visible image with its display metadata.
// SizeLabel and UploadedAtLabel are stored display strings, never recomputed.
type ImageRecord struct {
	ID              string `json:"id"`
	Source          string `json:"src"`
	Title           string `json:"title"`
	SizeLabel       string `json:"size"`
	UploadedAtLabel string `json:"uploadedAt"`
	IsFavorite      bool   `json:"isFavorite"`
}

// RecordInput is an ImageRecord before the store assigns its ID.
type RecordInput struct {
	Source          string
	Title           string
	SizeLabel       string
	UploadedAtLabel string
	IsFavorite      bool
}

func (in RecordInput) withID(id string) ImageRecord {
	return ImageRecord{
		ID:              id,
		Source:          in.Source,
		Title:           in.Title,
		SizeLabel:       in.SizeLabel,
		UploadedAtLabel: in.UploadedAtLabel,
		IsFavorite:      in.IsFavorite,
	}
}
