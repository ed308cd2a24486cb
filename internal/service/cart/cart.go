// Package cart implements the shopping-cart operations: resolving the
// current cart for an identity, incrementing product quantities through the
// cart aggregate, and folding an anonymous cart into a user cart at sign-in.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowmazon/storefront/internal/identity"
	"github.com/flowmazon/storefront/internal/logging"
	"github.com/flowmazon/storefront/internal/models"
	"github.com/flowmazon/storefront/internal/mykafka"
	"github.com/flowmazon/storefront/internal/repo"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type Service struct {
	Repo   *repo.GormRepo
	Events EventPublisher
}

// ShoppingCart is the derived view of a cart: Size and Subtotal are never
// persisted, they are recomputed from the current lines on every read.
type ShoppingCart struct {
	models.Cart
	Size     uint    `json:"size"`
	Subtotal float64 `json:"subtotal"`
}

func View(c *models.Cart) *ShoppingCart {
	if c == nil {
		return nil
	}
	view := ShoppingCart{Cart: *c}
	for _, it := range c.Items {
		view.Size += it.Quantity
		view.Subtotal += float64(it.Quantity) * it.Product.Price
	}
	return &view
}

// GetCart resolves the current cart for an identity. A missing cart, an
// unresolvable token or a None identity all yield nil without error.
func (s *Service) GetCart(ctx context.Context, id identity.Identity) (*ShoppingCart, error) {
	cart, err := s.findCart(ctx, id)
	if err != nil {
		return nil, err
	}
	return View(cart), nil
}

func (s *Service) findCart(ctx context.Context, id identity.Identity) (*models.Cart, error) {
	if userID, ok := id.UserID(); ok {
		return s.Repo.CartByUser(ctx, userID)
	}
	if token, ok := id.Token(); ok {
		return s.Repo.CartByToken(ctx, token)
	}
	return nil, nil
}

// IncrementProduct raises the quantity of productID in the identity's cart
// by one, creating the cart first when there is none. When a new anonymous
// cart is created the issued token is returned so the HTTP layer can hand
// it to the client; it is empty otherwise.
func (s *Service) IncrementProduct(ctx context.Context, id identity.Identity, productID uint) (*ShoppingCart, string, error) {
	if productID == 0 {
		return nil, "", fmt.Errorf("product id is required: %w", ErrValidation)
	}
	if _, err := s.Repo.ProductByID(ctx, productID); err != nil {
		return nil, "", fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}

	cart, err := s.findCart(ctx, id)
	if err != nil {
		return nil, "", err
	}

	issuedToken := ""
	if cart == nil {
		fresh := models.Cart{}
		if userID, ok := id.UserID(); ok {
			fresh.UserID = &userID
		} else {
			// A stale client token falls through here too and gets
			// overwritten by the freshly issued one.
			token := uuid.NewString()
			fresh.Token = &token
			issuedToken = token
		}
		if err := s.Repo.CreateCart(ctx, &fresh); err != nil {
			return nil, "", err
		}
		cart = &fresh
	}

	if err := s.Repo.IncrementItem(ctx, cart.ID, productID); err != nil {
		return nil, "", err
	}

	cart, err = s.Repo.CartByID(ctx, cart.ID)
	if err != nil {
		return nil, "", err
	}

	s.publish(ctx, fmt.Sprint(cart.ID), map[string]any{
		"type":      "cart_updated",
		"cartID":    cart.ID,
		"productID": productID,
	})

	return View(cart), issuedToken, nil
}

// MergeAnonCartIntoUserCart runs once per sign-in. An empty or stale token
// is a silent no-op. Reports whether an anonymous cart was consumed so the
// caller can clear the client's token.
func (s *Service) MergeAnonCartIntoUserCart(ctx context.Context, userID uint, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	merged, err := s.Repo.MergeAnonCart(ctx, userID, token)
	if err != nil {
		return false, err
	}
	if merged {
		s.publish(ctx, fmt.Sprint(userID), map[string]any{
			"type":   "carts_merged",
			"userID": userID,
		})
	}
	return merged, nil
}

// Events on cart mutations double as the cache-invalidation signal for any
// rendered cart or product page; losing one is logged, never fatal.
func (s *Service) publish(ctx context.Context, key string, event map[string]any) {
	if s.Events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Events.PublishEvent(pubCtx, mykafka.TopicCartEvents, key, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "error", err)
	}
}
