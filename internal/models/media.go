package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Media is a playable unit. The playout engine only looks at its identity and duration;
// show/season/episode exist for release-order sorting and thematic grouping.
type Media struct {
	ID        uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	FilePath  string    `json:"file_path" gorm:"type:text;not null;uniqueIndex;column:file_path" validate:"required"`
	Title     string    `json:"title" gorm:"type:text;not null;column:title" validate:"required"`
	ShowName  *string   `json:"show_name,omitempty" gorm:"type:text;column:show_name"`
	Season    *int      `json:"season,omitempty" gorm:"type:integer;column:season"`
	Episode   *int      `json:"episode,omitempty" gorm:"type:integer;column:episode"`
	Duration  int64     `json:"duration" gorm:"type:integer;not null;column:duration" validate:"required,gt=0"` // seconds
	CreatedAt time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
}

// TableName overrides the default pluralisation
func (Media) TableName() string {
	return "media"
}

// NewMedia creates a new Media with generated UUID and timestamp
func NewMedia(filePath, title string, duration int64) *Media {
	return &Media{
		ID:        uuid.New(),
		FilePath:  filePath,
		Title:     title,
		Duration:  duration,
		CreatedAt: time.Now().UTC(),
	}
}

// Runtime returns the media duration as a time.Duration
func (m *Media) Runtime() time.Duration {
	return time.Duration(m.Duration) * time.Second
}

// DurationString returns duration in HH:MM:SS format
func (m *Media) DurationString() string {
	hours := m.Duration / 3600
	minutes := (m.Duration % 3600) / 60
	seconds := m.Duration % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
