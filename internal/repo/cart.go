package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/flowmazon/storefront/internal/models"
)

// touchCart routes a line-item mutation through the cart aggregate so the
// cart's LastUpdated changes together with its items. This is a contract,
// not an optimization: callers must invoke it inside the same transaction
// that writes the lines.
func touchCart(tx *gorm.DB, cartID uint) error {
	return tx.Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("last_updated", time.Now().UTC()).Error
}

func (r *GormRepo) CartByID(ctx context.Context, id uint) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Preload("Items.Product").
		First(&cart, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) CartByUser(ctx context.Context, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// CartByToken resolves an anonymous cart. A stale or garbage token is not
// an error, it just means "no cart".
func (r *GormRepo) CartByToken(ctx context.Context, token string) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Preload("Items.Product").
		Where("token = ?", token).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) CreateCart(ctx context.Context, cart *models.Cart) error {
	return r.DB.WithContext(ctx).Create(cart).Error
}

// IncrementItem raises the quantity of productID in the cart by exactly one,
// creating the line when it does not exist yet. The (cart_id, product_id)
// unique index guarantees there is never a duplicate line to race against.
func (r *GormRepo) IncrementItem(ctx context.Context, cartID, productID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CartItem{}).
			Where("cart_id = ? AND product_id = ?", cartID, productID).
			Update("quantity", gorm.Expr("quantity + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			item := models.CartItem{CartID: cartID, ProductID: productID, Quantity: 1}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}
		return touchCart(tx, cartID)
	})
}

// MergeAnonCart folds the anonymous cart identified by token into the cart
// of userID. Reports whether an anonymous cart was consumed, so the caller
// knows to drop the client's token.
//
// The whole replace-and-delete runs in one transaction: on any failure both
// carts stay exactly as they were and the token remains valid for a retry
// on the next sign-in.
func (r *GormRepo) MergeAnonCart(ctx context.Context, userID uint, token string) (bool, error) {
	anon, err := r.CartByToken(ctx, token)
	if err != nil {
		return false, err
	}
	if anon == nil {
		return false, nil
	}

	userCart, err := r.CartByUser(ctx, userID)
	if err != nil {
		return false, err
	}

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if userCart != nil {
			merged := MergeLines(userCart.Items, anon.Items)

			if err := tx.Where("cart_id = ?", userCart.ID).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
			rows := make([]models.CartItem, 0, len(merged))
			for _, it := range merged {
				rows = append(rows, models.CartItem{
					CartID:    userCart.ID,
					ProductID: it.ProductID,
					Quantity:  it.Quantity,
				})
			}
			if len(rows) > 0 {
				if err := tx.Create(&rows).Error; err != nil {
					return err
				}
			}
			if err := touchCart(tx, userCart.ID); err != nil {
				return err
			}
		} else {
			uid := userID
			fresh := models.Cart{UserID: &uid}
			for _, it := range anon.Items {
				fresh.Items = append(fresh.Items, models.CartItem{
					ProductID: it.ProductID,
					Quantity:  it.Quantity,
				})
			}
			if err := tx.Create(&fresh).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("cart_id = ?", anon.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Cart{}, anon.ID).Error
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
