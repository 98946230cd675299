package models

import "time"

// EntityBase holds the fields shared by signals and trends.
type EntityBase struct {
	Status             Status     `gorm:"type:varchar(20);default:'New';index" json:"status"`
	CreatedBy          string     `gorm:"index" json:"created_by"`
	CreatedFor         string     `json:"created_for"`
	ModifiedAt         time.Time  `json:"modified_at"`
	ModifiedBy         string     `json:"modified_by"`
	Headline           string     `json:"headline"`
	Description        string     `json:"description"`
	Attachment         string     `json:"attachment"`
	SteepPrimary       string     `json:"steep_primary"`
	SteepSecondary     StringList `gorm:"type:text" json:"steep_secondary"`
	SignaturePrimary   string     `json:"signature_primary"`
	SignatureSecondary StringList `gorm:"type:text" json:"signature_secondary"`
	SDGs               StringList `gorm:"column:sdgs;type:text" json:"sdgs"`
}

// EntityStatus returns the review status. Used by the access policy, which
// treats signals and trends uniformly.
func (e *EntityBase) EntityStatus() Status { return e.Status }

// EntityCreator returns the creator's email.
func (e *EntityBase) EntityCreator() string { return e.CreatedBy }

// Anonymise removes personal information so the entity can be served to
// unauthenticated visitors.
func (e *EntityBase) Anonymise() {
	e.CreatedBy = AnonymousEmail
	e.ModifiedBy = AnonymousEmail
}
