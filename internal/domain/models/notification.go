package models

import "time"

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notification is what a user should be told about an operation. The integration
// layer only returns it; handlers and the CLI choose how to show it.
type Notification struct {
	Level       Level  `json:"level"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func Success(title, description string) Notification {
	return Notification{Level: LevelSuccess, Title: title, Description: description}
}

func Info(title, description string) Notification {
	return Notification{Level: LevelInfo, Title: title, Description: description}
}

func Failure(title, description string) Notification {
	return Notification{Level: LevelError, Title: title, Description: description}
}

type EventKind string

const (
	EventWebcam     EventKind = "webcam"
	EventSubmission EventKind = "submission"
	EventLogs       EventKind = "logs"
)

type Event struct {
	Kind         EventKind        `json:"kind"`
	Notification *Notification    `json:"notification,omitempty"`
	Webcam       *WebcamState     `json:"webcam,omitempty"`
	Submission   *SubmissionState `json:"submission,omitempty"`
	At           time.Time        `json:"at"`
}
