package models

import "time"

type UploadAck struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type FileInfo struct {
	Name        string `json:"name" validate:"required"`
	Size        int64  `json:"size" validate:"gte=0"`
	ContentType string `json:"content_type" validate:"video_mime"`
}

type SubmissionStatus string

const (
	SubmissionUploading  SubmissionStatus = "uploading"
	SubmissionProcessing SubmissionStatus = "processing"
	SubmissionProcessed  SubmissionStatus = "processed"
	SubmissionFailed     SubmissionStatus = "failed"
)

// Submission is the journal entry of one upload.
type Submission struct {
	ID          string           `json:"id" db:"id"`
	Filename    string           `json:"filename" db:"filename"`
	Size        int64            `json:"size" db:"size"`
	ContentType string           `json:"content_type" db:"content_type"`
	Status      SubmissionStatus `json:"status" db:"status"`
	VideoLogID  *int64           `json:"video_log_id,omitempty" db:"video_log_id"`
	Error       string           `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

type SubmissionState struct {
	File         *FileInfo `json:"file,omitempty"`
	FileSize     string    `json:"file_size,omitempty"`
	SubmissionID string    `json:"submission_id,omitempty"`
	Uploading    bool      `json:"uploading"`
	Processing   bool      `json:"processing"`
	Processed    bool      `json:"processed"`
	Frames       int       `json:"frames,omitempty"`
}

// Status is the label shown in the processing panel.
func (s SubmissionState) Status() string {
	switch {
	case s.Processing:
		return "Processing"
	case s.Processed:
		return "Completed"
	default:
		return "Ready"
	}
}

func (s SubmissionState) CanSubmit() bool {
	return s.File != nil && !s.Uploading && !s.Processing && !s.Processed
}
