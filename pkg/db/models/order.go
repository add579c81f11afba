package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/freshkart/freshkart-backend/pkg/enums"
)

// Order is the immutable business record produced by checkout. After creation
// only status, paymentStatus, gateway references, admin notes, and timestamps
// change, and only through internal/orders.
type Order struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber string    `gorm:"column:order_number;not null;uniqueIndex"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`

	Status enums.OrderStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`

	// Delivery address snapshot, copied at checkout so later edits to the
	// user's address book never alter order history.
	DeliveryName       string `gorm:"column:delivery_name;not null"`
	DeliveryPhone      string `gorm:"column:delivery_phone;not null"`
	DeliveryAddress    string `gorm:"column:delivery_address;not null"`
	DeliveryCity       string `gorm:"column:delivery_city;not null"`
	DeliveryState      string `gorm:"column:delivery_state;not null"`
	DeliveryPostalCode string `gorm:"column:delivery_postal_code;not null"`
	DeliveryLandmark   string `gorm:"column:delivery_landmark;not null;default:''"`

	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(10,2);not null"`
	DeliveryCharge decimal.Decimal `gorm:"column:delivery_charge;type:numeric(10,2);not null;default:0"`
	Discount       decimal.Decimal `gorm:"column:discount;type:numeric(10,2);not null;default:0"`
	WalletAmount   decimal.Decimal `gorm:"column:wallet_amount;type:numeric(10,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"column:total;type:numeric(10,2);not null"`

	// Money actually collected so far: the wallet debit at confirmation plus
	// whatever the gateway charged. Refunds credit this, never Total.
	CapturedAmount decimal.Decimal `gorm:"column:captured_amount;type:numeric(10,2);not null;default:0"`

	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'PENDING'"`
	RazorpayOrderID   *string             `gorm:"column:razorpay_order_id"`
	RazorpayPaymentID *string             `gorm:"column:razorpay_payment_id"`
	RazorpaySignature *string             `gorm:"column:razorpay_signature"`

	OrderNotes string `gorm:"column:order_notes;not null;default:''"`
	AdminNotes string `gorm:"column:admin_notes;not null;default:''"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	PaidAt      *time.Time `gorm:"column:paid_at"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
