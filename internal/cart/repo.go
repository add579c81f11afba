package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshkart/freshkart-backend/pkg/db/models"
)

// Repo owns cart_items persistence. WithTx returns a clone bound to the
// caller's transaction so checkout can read and clear the cart atomically.
type Repo struct {
	conn *gorm.DB
}

func NewRepo(conn *gorm.DB) *Repo {
	return &Repo{conn: conn}
}

func (r *Repo) WithTx(tx *gorm.DB) *Repo {
	return &Repo{conn: tx}
}

func (r *Repo) Find(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.conn.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repo) Create(ctx context.Context, item *models.CartItem) error {
	return r.conn.WithContext(ctx).Create(item).Error
}

func (r *Repo) Save(ctx context.Context, item *models.CartItem) error {
	return r.conn.WithContext(ctx).Save(item).Error
}

func (r *Repo) Delete(ctx context.Context, userID, productID uuid.UUID) (int64, error) {
	result := r.conn.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

// List returns all cart entries for a user, newest first, with products loaded.
func (r *Repo) List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.conn.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// ListSelected returns only the entries flagged for checkout.
func (r *Repo) ListSelected(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.conn.WithContext(ctx).
		Preload("Product").
		Where("user_id = ? AND selected = ?", userID, true).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *Repo) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.conn.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *Repo) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.conn.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}

// DeleteSelected removes the entries consumed by a successful checkout.
func (r *Repo) DeleteSelected(ctx context.Context, userID uuid.UUID) error {
	return r.conn.WithContext(ctx).
		Where("user_id = ? AND selected = ?", userID, true).
		Delete(&models.CartItem{}).Error
}

// GetProduct loads the catalog row a cart mutation needs for validation.
func (r *Repo) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.conn.WithContext(ctx).First(&product, "id = ?", productID).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repo) SetSelected(ctx context.Context, userID, productID uuid.UUID, selected bool) (int64, error) {
	result := r.conn.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Update("selected", selected)
	return result.RowsAffected, result.Error
}
