package repo

import (
	"github.com/flowmazon/storefront/internal/models"
)

// MergeLines folds extra into base. Lines sharing a product ID sum their
// quantities onto the base line; the rest are appended as-is. Base lines
// are never overwritten, only added to.
func MergeLines(base, extra []models.CartItem) []models.CartItem {
	merged := make([]models.CartItem, 0, len(base)+len(extra))
	merged = append(merged, base...)

	for _, it := range extra {
		found := false
		for i := range merged {
			if merged[i].ProductID == it.ProductID {
				merged[i].Quantity += it.Quantity
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, it)
		}
	}
	return merged
}
