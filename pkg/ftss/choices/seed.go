package choices

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/undp-futures/ftss/pkg/ftss/models"
)

// Seed inserts the static unit and location rows, ignoring existing names
// so it is safe to run on every startup.
func Seed(db *gorm.DB, units []models.Unit, locations []models.Location) error {
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}
	if len(units) > 0 {
		if err := db.Clauses(onConflict).Create(&units).Error; err != nil {
			return err
		}
	}
	if len(locations) > 0 {
		if err := db.Clauses(onConflict).Create(&locations).Error; err != nil {
			return err
		}
	}
	return nil
}

// DefaultUnits is a starter set of organisational units
func DefaultUnits() []models.Unit {
	return []models.Unit{
		{Name: "Executive Office", Region: "HQ"},
		{Name: "Regional Bureau for Africa", Region: "Africa"},
		{Name: "Regional Bureau for Asia and the Pacific", Region: "Asia-Pacific"},
		{Name: "Regional Bureau for Arab States", Region: "Arab States"},
		{Name: "Regional Bureau for Europe and the CIS", Region: "Europe and CIS"},
		{Name: "Regional Bureau for Latin America and the Caribbean", Region: "Latin America"},
	}
}
