package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a catalog listing with its live stock counter.
// StockQuantity is mutated only by internal/inventory, never by request handlers.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name          string          `gorm:"column:name;not null"`
	Slug          string          `gorm:"column:slug;not null;uniqueIndex"`
	Description   *string         `gorm:"column:description"`
	ImageURL      string          `gorm:"column:image_url;not null;default:''"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0"`
	OrdersCount   int             `gorm:"column:orders_count;not null;default:0"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// InStock reports whether the product can currently be sold.
func (p Product) InStock() bool {
	return p.StockQuantity > 0
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
