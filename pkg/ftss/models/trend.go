package models

import "time"

// Trend represents a trend curated from related signals.
type Trend struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	EntityBase
	AssignedTo        string `json:"assigned_to"`
	TimeHorizon       string `json:"time_horizon"`
	ImpactRating      string `json:"impact_rating"`
	ImpactDescription string `json:"impact_description"`

	// ConnectedSignals is populated from the connections table.
	ConnectedSignals []uint `gorm:"-" json:"connected_signals"`
}
