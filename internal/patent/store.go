// Copyright (c) 2026 IP Platform. All rights reserved.

package patent

import "context"

// AssetRepository persists saved IP assets.
type AssetRepository interface {
	// Create persists a new asset. A duplicate asset number surfaces as
	// Conflict.
	Create(context context.Context, asset *IPAsset) error

	FindByID(context context.Context, id string) (*IPAsset, error)

	// Update persists the mutable fields of an existing asset.
	Update(context context.Context, asset *IPAsset) error

	Delete(context context.Context, id string) error

	// List returns a page of assets, most recently updated first.
	List(context context.Context, limit, offset int) ([]IPAsset, int, error)
}
