package models

import "gorm.io/gorm"

// Project groups the merchant accounts whose network data is pulled together.
type Project struct {
	gorm.Model
	Name          string `gorm:"not null" json:"name"`
	MerchantID    string `gorm:"index" json:"merchant_id"`
	MerchantAlias string `json:"merchant_alias"`
	CardNetwork   string `gorm:"default:'Visa'" json:"card_network"`
	Description   string `json:"description"`
}
