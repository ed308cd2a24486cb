package repo

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/flowmazon/storefront/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.Product{}, &models.User{}, &models.Cart{}, &models.CartItem{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return &GormRepo{DB: db}
}

func createProducts(t *testing.T, r *GormRepo, prices ...float64) []models.Product {
	t.Helper()

	out := make([]models.Product, 0, len(prices))
	for _, price := range prices {
		p := models.Product{Name: "product", Description: "desc", ImageURL: "http://img", Price: price}
		require.NoError(t, r.DB.Create(&p).Error)
		out = append(out, p)
	}
	return out
}

func TestIncrementItem_CreatesThenIncrements(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	prods := createProducts(t, r, 10)

	uid := uint(1)
	cart := models.Cart{UserID: &uid}
	require.NoError(t, r.CreateCart(ctx, &cart))

	require.NoError(t, r.IncrementItem(ctx, cart.ID, prods[0].ID))

	got, err := r.CartByID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, uint(1), got.Items[0].Quantity)

	require.NoError(t, r.IncrementItem(ctx, cart.ID, prods[0].ID))

	got, err = r.CartByID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1, "no duplicate line for the same product")
	assert.Equal(t, uint(2), got.Items[0].Quantity)
}

func TestIncrementItem_BumpsCartTimestamp(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	prods := createProducts(t, r, 10)

	uid := uint(1)
	cart := models.Cart{UserID: &uid}
	require.NoError(t, r.DB.Create(&cart).Error)

	// UpdateColumn skips the auto timestamp so the cart looks untouched.
	before := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, r.DB.Model(&models.Cart{}).Where("id = ?", cart.ID).UpdateColumn("last_updated", before).Error)
	require.NoError(t, r.IncrementItem(ctx, cart.ID, prods[0].ID))

	got, err := r.CartByID(ctx, cart.ID)
	require.NoError(t, err)
	assert.True(t, got.LastUpdated.After(before), "line mutation must go through the cart aggregate")
}

func TestCartByToken_StaleTokenIsNoCart(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)

	cart, err := r.CartByToken(context.Background(), "no-such-token")
	require.NoError(t, err)
	assert.Nil(t, cart)
}

func TestMergeAnonCart_SumsSharedQuantities(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	prods := createProducts(t, r, 10, 20)
	p1, p2 := prods[0].ID, prods[1].ID

	uid := uint(1)
	userCart := models.Cart{
		UserID: &uid,
		Items:  []models.CartItem{{ProductID: p1, Quantity: 2}},
	}
	require.NoError(t, r.DB.Create(&userCart).Error)

	token := "anon-token"
	anonCart := models.Cart{
		Token: &token,
		Items: []models.CartItem{
			{ProductID: p1, Quantity: 3},
			{ProductID: p2, Quantity: 1},
		},
	}
	require.NoError(t, r.DB.Create(&anonCart).Error)

	merged, err := r.MergeAnonCart(ctx, uid, token)
	require.NoError(t, err)
	assert.True(t, merged)

	got, err := r.CartByUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, map[uint]uint{p1: 5, p2: 1}, quantities(got.Items))

	gone, err := r.CartByToken(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, gone, "anonymous cart must be deleted")

	var orphans int64
	require.NoError(t, r.DB.Model(&models.CartItem{}).Where("cart_id = ?", anonCart.ID).Count(&orphans).Error)
	assert.Zero(t, orphans, "anonymous cart lines must be deleted")
}

func TestMergeAnonCart_PromotesWhenUserHasNoCart(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	prods := createProducts(t, r, 10, 20)

	token := "anon-token"
	anonCart := models.Cart{
		Token: &token,
		Items: []models.CartItem{
			{ProductID: prods[0].ID, Quantity: 4},
			{ProductID: prods[1].ID, Quantity: 1},
		},
	}
	require.NoError(t, r.DB.Create(&anonCart).Error)

	merged, err := r.MergeAnonCart(ctx, 42, token)
	require.NoError(t, err)
	assert.True(t, merged)

	got, err := r.CartByUser(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, map[uint]uint{prods[0].ID: 4, prods[1].ID: 1}, quantities(got.Items))

	gone, err := r.CartByToken(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestMergeAnonCart_FailureRollsBackEverything(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	prods := createProducts(t, r, 10, 20)
	p1, p2 := prods[0].ID, prods[1].ID

	uid := uint(1)
	userCart := models.Cart{
		UserID: &uid,
		Items:  []models.CartItem{{ProductID: p1, Quantity: 2}},
	}
	require.NoError(t, r.DB.Create(&userCart).Error)

	token := "anon-token"
	anonCart := models.Cart{
		Token: &token,
		Items: []models.CartItem{
			{ProductID: p1, Quantity: 3},
			{ProductID: p2, Quantity: 1},
		},
	}
	require.NoError(t, r.DB.Create(&anonCart).Error)

	// Make the final step of the merge transaction fail: deleting the
	// anonymous cart row aborts, so every earlier step must roll back.
	require.NoError(t, r.DB.Exec(
		`CREATE TRIGGER block_cart_delete BEFORE DELETE ON carts
		 BEGIN SELECT RAISE(ABORT, 'blocked'); END;`,
	).Error)

	_, err := r.MergeAnonCart(ctx, uid, token)
	require.Error(t, err)

	got, err := r.CartByUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, map[uint]uint{p1: 2}, quantities(got.Items), "user cart must be untouched")

	anon, err := r.CartByToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, anon, "anonymous cart must survive for a retry")
	assert.Equal(t, map[uint]uint{p1: 3, p2: 1}, quantities(anon.Items))
}

func TestMergeAnonCart_NoAnonCartIsNoop(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	prods := createProducts(t, r, 10)

	uid := uint(1)
	userCart := models.Cart{
		UserID: &uid,
		Items:  []models.CartItem{{ProductID: prods[0].ID, Quantity: 2}},
	}
	require.NoError(t, r.DB.Create(&userCart).Error)

	merged, err := r.MergeAnonCart(ctx, uid, "stale-or-garbage")
	require.NoError(t, err)
	assert.False(t, merged)

	got, err := r.CartByUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, map[uint]uint{prods[0].ID: 2}, quantities(got.Items))
}
