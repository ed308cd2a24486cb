package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowmazon/storefront/internal/models"
)

func quantities(items []models.CartItem) map[uint]uint {
	out := make(map[uint]uint, len(items))
	for _, it := range items {
		out[it.ProductID] = it.Quantity
	}
	return out
}

func TestMergeLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		base  []models.CartItem
		extra []models.CartItem
		want  map[uint]uint
	}{
		{
			name:  "disjoint products are appended",
			base:  []models.CartItem{{ProductID: 1, Quantity: 2}},
			extra: []models.CartItem{{ProductID: 2, Quantity: 1}},
			want:  map[uint]uint{1: 2, 2: 1},
		},
		{
			name:  "shared products sum quantities",
			base:  []models.CartItem{{ProductID: 1, Quantity: 2}},
			extra: []models.CartItem{{ProductID: 1, Quantity: 3}, {ProductID: 2, Quantity: 1}},
			want:  map[uint]uint{1: 5, 2: 1},
		},
		{
			name:  "empty base takes extra verbatim",
			base:  nil,
			extra: []models.CartItem{{ProductID: 7, Quantity: 4}},
			want:  map[uint]uint{7: 4},
		},
		{
			name:  "empty extra keeps base",
			base:  []models.CartItem{{ProductID: 7, Quantity: 4}},
			extra: nil,
			want:  map[uint]uint{7: 4},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			merged := MergeLines(tt.base, tt.extra)
			assert.Equal(t, tt.want, quantities(merged))

			// Line order must not matter: swapping the carts may change which
			// cart is the base, but per-product quantities stay the same.
			swapped := MergeLines(tt.extra, tt.base)
			assert.Equal(t, tt.want, quantities(swapped))
		})
	}
}

func TestMergeLines_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	base := []models.CartItem{{ProductID: 1, Quantity: 2}}
	extra := []models.CartItem{{ProductID: 1, Quantity: 3}}

	_ = MergeLines(base, extra)

	assert.Equal(t, uint(2), base[0].Quantity)
	assert.Equal(t, uint(3), extra[0].Quantity)
}
