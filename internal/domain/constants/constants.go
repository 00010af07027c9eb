package constants

const (
	ContentTypeMP4       = "video/mp4"
	ContentTypeAVI       = "video/avi"
	ContentTypeQuickTime = "video/quicktime"
)

// AllowedVideoTypes is the upload allow-list.
var AllowedVideoTypes = []string{ContentTypeMP4, ContentTypeAVI, ContentTypeQuickTime}

// VideoTypeByExt maps the extensions a file picker accepts to the type it reports.
var VideoTypeByExt = map[string]string{
	".mp4": ContentTypeMP4,
	".avi": ContentTypeAVI,
	".mov": ContentTypeQuickTime,
}

// WebcamAlreadyRunning is the status the backend returns for a repeated start.
const WebcamAlreadyRunning = "Webcam already running"

const UploadFieldName = "file"

const Operator = "operator"

// AlertConfidence is the score from which the backend raises an alert.
const AlertConfidence = 0.8
