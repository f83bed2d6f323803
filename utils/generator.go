package utils

import (
	"math/rand"
	"time"

	"github.com/anjiri1684/logoped_crm/models"
	"gorm.io/gorm"
)

const referenceLength = 8
const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateUniquePayoutReference returns a "PR-XXXXXXXX" code not yet used by any payout request.
func GenerateUniquePayoutReference(tx *gorm.DB) (string, error) {
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		b := make([]byte, referenceLength)
		for i := range b {
			b[i] = referenceAlphabet[seededRand.Intn(len(referenceAlphabet))]
		}
		ref := "PR-" + string(b)

		var count int64
		if err := tx.Model(&models.PayoutRequest{}).Where("reference = ?", ref).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return ref, nil
		}
	}
}
