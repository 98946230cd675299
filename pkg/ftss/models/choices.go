package models

// Unit is a reference row for organisational units.
type Unit struct {
	ID     uint   `gorm:"primarykey" json:"id"`
	Name   string `gorm:"uniqueIndex;not null" json:"name"`
	Region string `json:"region"`
}

// Location is a reference row for geographic regions, countries and
// territories based on UNSD M49.
type Location struct {
	ID     uint   `gorm:"primarykey" json:"id"`
	Name   string `gorm:"uniqueIndex;not null" json:"name"`
	Region string `json:"region"`
	Bureau string `json:"bureau"`
}
