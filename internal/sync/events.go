package sync

import "time"

const (
	EventTitleUpdate  = "title.update"
	EventTitleDelete  = "title.delete"
	EventTitleRefresh = "title.refresh"
)

// TitleEvent is pushed to the owner's connected clients whenever one of
// their titles changes.
type TitleEvent struct {
	Type     string    `json:"type"`
	UserID   string    `json:"user_id"`
	TitleID  string    `json:"title_id"`
	Title    string    `json:"title,omitempty"`
	Total    int       `json:"total,omitempty"`
	Progress int       `json:"progress,omitempty"`
	Status   string    `json:"status,omitempty"`
	ImageURL string    `json:"image_url,omitempty"`
	At       time.Time `json:"at"`
}
