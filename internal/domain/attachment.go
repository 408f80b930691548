package domain

import "time"

// FileAttachment describes a file attached to a team assignment.
// BlobRef points into the configured blob store; the bytes themselves
// never enter the incident snapshot.
type FileAttachment struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	BlobRef     string    `json:"blob_ref"`
	UploadedAt  time.Time `json:"uploaded_at"`
	UploadedBy  string    `json:"uploaded_by"`
}
