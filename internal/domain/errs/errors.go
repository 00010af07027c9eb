package errs

import "errors"

var (
	ErrInvalidFileType  = errors.New("invalid file type")
	ErrNoFileSelected   = errors.New("no file selected")
	ErrUploadInProgress = errors.New("upload or processing already in progress")

	ErrUnexpectedStatus  = errors.New("unexpected backend status")
	ErrProcessingTimeout = errors.New("processing did not complete in time")

	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrSubmissionNotFound = errors.New("submission not found")
	ErrWriteToDB          = errors.New("failed to write to database")
)
