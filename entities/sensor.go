package entities

import "time"

type Sensor struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"size:64;index" json:"codigo"`
	Location  string    `gorm:"size:255" json:"ubicacion"`
	OwnerID   uint      `gorm:"index" json:"usuario_id"`
	CreatedAt time.Time `json:"-"`
}
