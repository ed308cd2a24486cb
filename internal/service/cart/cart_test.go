package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/flowmazon/storefront/internal/identity"
	"github.com/flowmazon/storefront/internal/models"
	"github.com/flowmazon/storefront/internal/repo"
)

type fakeEvents struct {
	mu     sync.Mutex
	events []map[string]any
}

func (f *fakeEvents) PublishEvent(_ context.Context, _, _ string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := event.(map[string]any); ok {
		f.events = append(f.events, m)
	}
	return nil
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		if s, ok := e["type"].(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func newTestService(t *testing.T) (*Service, *fakeEvents) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.User{}, &models.Cart{}, &models.CartItem{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	events := &fakeEvents{}
	return &Service{Repo: &repo.GormRepo{DB: db}, Events: events}, events
}

func createProduct(t *testing.T, s *Service, price float64) models.Product {
	t.Helper()

	p := models.Product{Name: "product", Description: "desc", ImageURL: "http://img", Price: price}
	require.NoError(t, s.Repo.DB.Create(&p).Error)
	return p
}

func TestGetCart_NoneIdentity(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t)

	view, err := s.GetCart(context.Background(), identity.None())
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestGetCart_StaleTokenIsAbsentNotError(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t)

	view, err := s.GetCart(context.Background(), identity.Anonymous("stale"))
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestGetCart_DerivedViewIsIdempotent(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t)
	ctx := context.Background()

	p1 := createProduct(t, s, 10)
	p2 := createProduct(t, s, 2.5)

	uid := uint(1)
	cart := models.Cart{
		UserID: &uid,
		Items: []models.CartItem{
			{ProductID: p1.ID, Quantity: 2},
			{ProductID: p2.ID, Quantity: 4},
		},
	}
	require.NoError(t, s.Repo.DB.Create(&cart).Error)

	first, err := s.GetCart(ctx, identity.User(uid))
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, uint(6), first.Size)
	assert.Equal(t, 2*10.0+4*2.5, first.Subtotal)

	second, err := s.GetCart(ctx, identity.User(uid))
	require.NoError(t, err)
	assert.Equal(t, first.Size, second.Size)
	assert.Equal(t, first.Subtotal, second.Subtotal)
}

func TestIncrementProduct_IssuesTokenForAnonymous(t *testing.T) {
	t.Parallel()

	s, events := newTestService(t)
	ctx := context.Background()
	p := createProduct(t, s, 10)

	view, token, err := s.IncrementProduct(ctx, identity.None(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, view)
	require.NotEmpty(t, token, "a fresh anonymous cart must hand a token back")
	assert.Equal(t, uint(1), view.Size)

	// The issued token resolves to the same cart afterwards.
	again, token2, err := s.IncrementProduct(ctx, identity.Anonymous(token), p.ID)
	require.NoError(t, err)
	assert.Empty(t, token2, "existing cart must not rotate the token")
	assert.Equal(t, uint(2), again.Size)
	require.Len(t, again.Items, 1)

	assert.Contains(t, events.types(), "cart_updated")
}

func TestIncrementProduct_UserCartCreatedOnDemand(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t)
	ctx := context.Background()
	p := createProduct(t, s, 3)

	view, token, err := s.IncrementProduct(ctx, identity.User(7), p.ID)
	require.NoError(t, err)
	assert.Empty(t, token)
	require.Len(t, view.Items, 1)
	assert.Equal(t, uint(1), view.Items[0].Quantity)
	assert.Equal(t, 3.0, view.Subtotal)
}

func TestIncrementProduct_UnknownProduct(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t)

	_, _, err := s.IncrementProduct(context.Background(), identity.None(), 999)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIncrementProduct_MissingProductID(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t)

	_, _, err := s.IncrementProduct(context.Background(), identity.None(), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMergeAnonCartIntoUserCart_EmptyTokenIsNoop(t *testing.T) {
	t.Parallel()

	s, events := newTestService(t)

	merged, err := s.MergeAnonCartIntoUserCart(context.Background(), 1, "")
	require.NoError(t, err)
	assert.False(t, merged)
	assert.Empty(t, events.types())
}

func TestMergeAnonCartIntoUserCart_PublishesEvent(t *testing.T) {
	t.Parallel()

	s, events := newTestService(t)
	ctx := context.Background()
	p := createProduct(t, s, 10)

	token := "anon-token"
	anon := models.Cart{Token: &token, Items: []models.CartItem{{ProductID: p.ID, Quantity: 1}}}
	require.NoError(t, s.Repo.DB.Create(&anon).Error)

	merged, err := s.MergeAnonCartIntoUserCart(ctx, 1, token)
	require.NoError(t, err)
	assert.True(t, merged)
	assert.Contains(t, events.types(), "carts_merged")

	view, err := s.GetCart(ctx, identity.User(1))
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, uint(1), view.Size)
}
