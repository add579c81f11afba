package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User represents the canonical identity entity together with its wallet balance.
// Wallet mutations go through internal/wallet only; the balance never goes negative.
type User struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Email              string          `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name               string          `gorm:"column:name;not null"`
	Phone              *string         `gorm:"column:phone"`
	WalletBalance      decimal.Decimal `gorm:"column:wallet_balance;type:numeric(10,2);not null;default:0"`
	EmailNotifications bool            `gorm:"column:email_notifications;not null;default:true"`
	IsActive           bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
