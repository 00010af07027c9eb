package models

type WebcamReply struct {
	Status string
	Truthy bool
}

type WebcamState struct {
	Running bool   `json:"running"`
	Busy    bool   `json:"busy"`
	FeedURL string `json:"feed_url,omitempty"`
}
