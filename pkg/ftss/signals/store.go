package signals

import (
	"context"
	"log"

	"gorm.io/gorm"

	"github.com/undp-futures/ftss/pkg/ftss/models"
	"github.com/undp-futures/ftss/pkg/ftss/storage"
)

// attachmentFolder is the blob store folder for signal images
const attachmentFolder = "signals"

// loadConnectedTrends fills ConnectedTrends for a batch of signals with one query
func loadConnectedTrends(db *gorm.DB, signals []*models.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	ids := make([]uint, len(signals))
	byID := make(map[uint]*models.Signal, len(signals))
	for i, s := range signals {
		ids[i] = s.ID
		byID[s.ID] = s
		s.ConnectedTrends = []uint{}
	}
	var connections []models.Connection
	if err := db.Where("signal_id IN ?", ids).Order("trend_id").Find(&connections).Error; err != nil {
		return err
	}
	for _, conn := range connections {
		if s, ok := byID[conn.SignalID]; ok {
			s.ConnectedTrends = append(s.ConnectedTrends, conn.TrendID)
		}
	}
	return nil
}

// loadFavourites fills the per-viewer Favorite flag for a batch of signals
func loadFavourites(db *gorm.DB, user models.User, signals []*models.Signal) error {
	if len(signals) == 0 || !user.Role.IsRegular() {
		return nil
	}
	ids := make([]uint, len(signals))
	for i, s := range signals {
		ids[i] = s.ID
	}
	var favourites []models.Favourite
	if err := db.Where("user_id = ? AND signal_id IN ?", user.ID, ids).Find(&favourites).Error; err != nil {
		return err
	}
	marked := make(map[uint]bool, len(favourites))
	for _, f := range favourites {
		marked[f.SignalID] = true
	}
	for _, s := range signals {
		s.Favorite = marked[s.ID]
	}
	return nil
}

// replaceConnections swaps the signal's trend connections for the given set
func replaceConnections(tx *gorm.DB, signalID uint, trendIDs []uint, createdBy string) error {
	if err := tx.Where("signal_id = ?", signalID).Delete(&models.Connection{}).Error; err != nil {
		return err
	}
	for _, trendID := range trendIDs {
		conn := models.Connection{SignalID: signalID, TrendID: trendID, CreatedBy: createdBy}
		if err := tx.Create(&conn).Error; err != nil {
			return err
		}
	}
	return nil
}

// insertConnections links a new signal to trends. Individual failures are
// logged and skipped so a bad trend reference never fails the signal write.
func insertConnections(db *gorm.DB, signalID uint, trendIDs []uint, createdBy string) {
	for _, trendID := range trendIDs {
		conn := models.Connection{SignalID: signalID, TrendID: trendID, CreatedBy: createdBy}
		if err := db.Create(&conn).Error; err != nil {
			log.Printf("signals: connecting signal %d to trend %d: %v", signalID, trendID, err)
		}
	}
}

// DeleteSignal removes a signal and every reference to it: trend connections,
// favourites, collaborator grants, group links, and the signal lists and
// collaborator maps of every user group. Runs in one transaction; the blob
// store cleanup afterwards is best-effort.
func DeleteSignal(ctx context.Context, db *gorm.DB, store storage.Store, signalID uint) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("signal_id = ?", signalID).Delete(&models.Connection{}).Error; err != nil {
			return err
		}
		if err := tx.Where("signal_id = ?", signalID).Delete(&models.Favourite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("signal_id = ?", signalID).Delete(&models.SignalCollaborator{}).Error; err != nil {
			return err
		}
		if err := tx.Where("signal_id = ?", signalID).Delete(&models.SignalCollaboratorGroup{}).Error; err != nil {
			return err
		}

		var groups []models.UserGroup
		if err := tx.Find(&groups).Error; err != nil {
			return err
		}
		for i := range groups {
			g := &groups[i]
			_, mapped := g.CollaboratorMap[signalID]
			if !g.SignalIDs.Contains(signalID) && !mapped {
				continue
			}
			g.RemoveSignal(signalID)
			if err := tx.Save(g).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&models.Signal{}, signalID).Error
	})
	if err != nil {
		return err
	}

	if store != nil {
		if err := store.DeleteImage(ctx, signalID, attachmentFolder); err != nil {
			log.Printf("signals: deleting attachment for signal %d: %v", signalID, err)
		}
	}
	return nil
}
