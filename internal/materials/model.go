package materials

import (
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidMaterialID indicates a material identifier is empty or too long.
	ErrInvalidMaterialID = errors.New("materials: invalid material id")
	// ErrInvalidKind indicates an unknown material kind.
	ErrInvalidKind = errors.New("materials: invalid kind")
	// ErrInvalidRating indicates a star rating outside the 1 to 5 range.
	ErrInvalidRating = errors.New("materials: rating must be between 1 and 5")
)

// MaterialID represents a validated material identifier.
type MaterialID string

// NewMaterialID validates raw input and returns a MaterialID.
func NewMaterialID(rawInput string) (MaterialID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidMaterialID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidMaterialID, maxIdentifierLength)
	}
	return MaterialID(trimmed), nil
}

// String returns the underlying string identifier.
func (id MaterialID) String() string {
	return string(id)
}

// Kind classifies a shared study material.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindVideo Kind = "video"
	KindBook  Kind = "book"
	KindCode  Kind = "code"
)

// ParseKind validates a raw kind value.
func ParseKind(rawInput string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case string(KindPDF):
		return KindPDF, nil
	case string(KindVideo):
		return KindVideo, nil
	case string(KindBook):
		return KindBook, nil
	case string(KindCode):
		return KindCode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, rawInput)
	}
}

// Material models shared study material metadata. The file blob itself
// lives with the external storage collaborator; this record only
// catalogs it. The download and rating counters move through atomic
// increments.
type Material struct {
	MaterialID       string `gorm:"column:material_id;primaryKey;size:190;not null"`
	Title            string `gorm:"column:title;size:320;not null"`
	Course           string `gorm:"column:course;size:190;not null;default:''"`
	Kind             Kind   `gorm:"column:kind;size:16;not null"`
	SizeLabel        string `gorm:"column:size_label;size:32;not null;default:''"`
	UploaderID       string `gorm:"column:uploader_id;size:190;not null"`
	UploaderName     string `gorm:"column:uploader_name;size:320;not null"`
	Downloads        int64  `gorm:"column:downloads;not null;default:0"`
	RatingTotal      int64  `gorm:"column:rating_total;not null;default:0"`
	RatingCount      int64  `gorm:"column:rating_count;not null;default:0"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null;index:idx_materials_created"`
}

// Rating returns the average star rating, zero when unrated.
func (m Material) Rating() float64 {
	if m.RatingCount == 0 {
		return 0
	}
	return float64(m.RatingTotal) / float64(m.RatingCount)
}

// TableName provides the explicit table binding for GORM.
func (Material) TableName() string {
	return "materials"
}
