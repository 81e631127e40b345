package models

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Custom field types. The set is closed; see customfield.FromModel.
const (
	FieldTypeText         = "text"
	FieldTypeNumber       = "number"
	FieldTypeDate         = "date"
	FieldTypeAlphanumeric = "alphanumeric"
	FieldTypeDropdown     = "dropdown"
)

// CustomField is the stored definition of an extra dispute attribute.
// Options is only meaningful for dropdown fields and keeps its order.
type CustomField struct {
	gorm.Model
	Key      string         `gorm:"uniqueIndex;not null" json:"key"`
	Label    string         `gorm:"not null" json:"label"`
	Type     string         `gorm:"not null" json:"type"`
	Required bool           `gorm:"default:false" json:"required"`
	Options  pq.StringArray `gorm:"type:text" json:"options,omitempty"`
	Position int            `gorm:"default:0" json:"position"`
}
