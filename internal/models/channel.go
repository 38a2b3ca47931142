package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel represents a simulated broadcast channel
type Channel struct {
	ID        uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	Number    int       `json:"number" gorm:"type:integer;not null;default:0;column:number"`
	Name      string    `json:"name" gorm:"type:text;not null;column:name" validate:"required,min=1,max=255"`
	Icon      *string   `json:"icon,omitempty" gorm:"type:text;column:icon"`
	TimeZone  string    `json:"time_zone" gorm:"type:text;not null;default:UTC;column:time_zone"`
	CreatedAt time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// NewChannel creates a new Channel with generated UUID and timestamps
func NewChannel(number int, name string) *Channel {
	now := time.Now().UTC()
	return &Channel{
		ID:        uuid.New(),
		Number:    number,
		Name:      name,
		TimeZone:  "UTC",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Location resolves the channel time zone, falling back to UTC
func (c *Channel) Location() *time.Location {
	if c.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
