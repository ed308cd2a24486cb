package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowmazon/storefront/internal/logging"
	"github.com/flowmazon/storefront/internal/models"
	"github.com/flowmazon/storefront/internal/mykafka"
	"github.com/flowmazon/storefront/internal/repo"
	"github.com/flowmazon/storefront/internal/transport"
)

var ErrValidation = errors.New("validation")

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// Indexer keeps the search index in sync with the product table. Index
// failures never fail the write, they are logged and picked up by the next
// reindex.
type Indexer interface {
	IndexProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
}

type Service struct {
	Repo    *repo.GormRepo
	Events  EventPublisher
	Indexer Indexer
}

func (s *Service) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	return s.Repo.ProductByID(ctx, id)
}

func (s *Service) GetProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.Products(ctx, offset, limit)
}

func (s *Service) CreateProduct(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrValidation)
	}
	if req.Description == "" {
		return nil, fmt.Errorf("description is required: %w", ErrValidation)
	}
	if req.ImageURL == "" {
		return nil, fmt.Errorf("image_url is required: %w", ErrValidation)
	}
	if req.Price <= 0 {
		return nil, fmt.Errorf("price must be positive: %w", ErrValidation)
	}

	prod := models.Product{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
	}
	if err := s.Repo.CreateProduct(ctx, &prod); err != nil {
		return nil, err
	}

	s.index(ctx, prod)
	s.publish(ctx, fmt.Sprint(prod.ID), map[string]any{
		"type":      "product_created",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return &prod, nil
}

func (s *Service) PatchProduct(ctx context.Context, req transport.PatchProductRequest, id uint) (*models.Product, error) {
	if req.Price != nil && *req.Price <= 0 {
		return nil, fmt.Errorf("price must be positive: %w", ErrValidation)
	}

	prod, err := s.Repo.PatchProduct(ctx, req, id)
	if err != nil {
		return nil, err
	}

	s.index(ctx, *prod)
	s.publish(ctx, fmt.Sprint(prod.ID), map[string]any{
		"type":      "product_updated",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return prod, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	if s.Indexer != nil {
		if err := s.Indexer.DeleteProduct(ctx, id); err != nil {
			logging.FromContext(ctx).Error("es delete error", "product_id", id, "error", err)
		}
	}
	s.publish(ctx, fmt.Sprint(id), map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})
	return nil
}

// SearchProducts is the storefront substring search over name and
// description, newest first. An empty result is normal, not an error.
func (s *Service) SearchProducts(ctx context.Context, q string) ([]models.Product, error) {
	return s.Repo.SearchProducts(ctx, q)
}

func (s *Service) index(ctx context.Context, prod models.Product) {
	if s.Indexer == nil {
		return
	}
	if err := s.Indexer.IndexProduct(ctx, prod); err != nil {
		logging.FromContext(ctx).Error("es index error", "product_id", prod.ID, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, key string, event map[string]any) {
	if s.Events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Events.PublishEvent(pubCtx, mykafka.TopicProductEvents, key, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "error", err)
	}
}
