package utils

import (
	"errors"
	"strings"

	"github.com/anjiri1684/skillhat/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const transactionPrefix = "SKILLHAT_"

func NewTransactionID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return transactionPrefix + strings.ToUpper(hex[:12])
}

// GenerateUniqueTransactionID draws ids until one is unused by any payment.
func GenerateUniqueTransactionID(tx *gorm.DB) (string, error) {
	for {
		id := NewTransactionID()

		var payment models.Payment
		err := tx.Select("id").Where("transaction_id = ?", id).First(&payment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return id, nil
			}
			return "", err
		}
	}
}
