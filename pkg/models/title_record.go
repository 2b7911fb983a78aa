package models

import "time"

// TitleRecord is a title stored in a user's list.
type TitleRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Type      MediaType `json:"type"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Total     int       `json:"total"`
	Score     int       `json:"score"`
	ImageURL  string    `json:"image_url"`
	ImageHint string    `json:"image_hint,omitempty"`
	SourceURL string    `json:"source_url,omitempty"`
	IsSecret  bool      `json:"is_secret"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
