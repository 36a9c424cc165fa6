package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Dataset is one uploaded spreadsheet, addressed by ID instead of process-wide state.
type Dataset struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	Reviews    ReviewSet `json:"reviews"`
	Ratings    []float64 `json:"ratings,omitempty"`
	HasRating  bool      `json:"has_rating"`
	Hash       string    `json:"hash"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ContentHash identifies a review set by content; equal reviews hash equally.
func ContentHash(reviews ReviewSet) string {
	h := sha256.New()
	for _, r := range reviews {
		h.Write([]byte(r))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
