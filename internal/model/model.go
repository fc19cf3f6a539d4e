package model

import (
	"time"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels lists every table of the viewer database
var DatabaseModels = []any{
	&Preference{},
}

// Preference is one persisted viewer setting, such as the map theme
type Preference struct {
	Key       string    `json:"key" gorm:"primaryKey;size:64"`
	Value     string    `json:"value" gorm:"size:255"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (*Preference) TableName() string {
	return "preferences"
}
