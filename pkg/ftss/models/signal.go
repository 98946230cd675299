package models

import "time"

// Signal represents a signal of change spotted by a user.
type Signal struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	EntityBase
	CreatedUnit string     `json:"created_unit"`
	URL         string     `json:"url"`
	Relevance   string     `json:"relevance"`
	Keywords    StringList `gorm:"type:text" json:"keywords"`
	Location    string     `gorm:"index" json:"location"`
	Score       string     `json:"score"`

	// ConnectedTrends is populated from the connections table, Favorite is
	// computed per viewer. Neither is a column on signals.
	ConnectedTrends []uint `gorm:"-" json:"connected_trends"`
	Favorite        bool   `gorm:"-" json:"favorite"`
}

// Connection links a signal to a trend (many-to-many).
type Connection struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	SignalID  uint      `gorm:"not null;index;uniqueIndex:idx_signal_trend" json:"signal_id"`
	TrendID   uint      `gorm:"not null;index;uniqueIndex:idx_signal_trend" json:"trend_id"`
	CreatedBy string    `json:"created_by"`
}

// Favourite marks a signal as favourited by a user, unique per pair.
type Favourite struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_signal" json:"user_id"`
	SignalID  uint      `gorm:"not null;uniqueIndex:idx_user_signal;index" json:"signal_id"`
}
