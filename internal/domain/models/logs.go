package models

// FireLog is one realtime detection stored by the backend.
type FireLog struct {
	ID         int64   `json:"id"`
	Timestamp  string  `json:"timestamp"`
	Confidence float64 `json:"confidence"`
	ImagePath  string  `json:"image_path"`
}

// VideoLog is one finished offline video job.
type VideoLog struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	VideoPath string `json:"video_path"`
	CSVPath   string `json:"csv_path"`
}

type FireLogs struct {
	Logs []FireLog `json:"logs"`
}

type VideoLogs struct {
	Logs []VideoLog `json:"logs"`
}
