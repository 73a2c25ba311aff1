// Copyright (c) 2026 IP Platform. All rights reserved.

package patent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ipplatform/backend/internal/platform/apperr"
	"github.com/ipplatform/backend/pkg/pagination"
)

// searcher is the provider surface the service depends on; satisfied by
// [Client] and by test doubles.
type searcher interface {
	Search(context context.Context, query string, page int) (json.RawMessage, error)
	Detail(context context.Context, kind, id string) (json.RawMessage, error)
}

// Service implements the patent-search proxy and IP asset use cases.
type Service struct {
	provider searcher
	assets   AssetRepository
}

// NewService constructs the patent [Service] with its dependencies.
func NewService(provider searcher, assets AssetRepository) *Service {
	return &Service{provider: provider, assets: assets}
}

// # Search Proxy

// Search forwards a search to the provider through the cache.
func (service *Service) Search(context context.Context, query string, page int) (json.RawMessage, error) {
	return service.provider.Search(context, query, page)
}

// Detail forwards a record lookup to the provider through the cache.
func (service *Service) Detail(context context.Context, kind, id string) (json.RawMessage, error) {
	return service.provider.Detail(context, kind, id)
}

// # Asset Management

// AssetInput carries the writable fields of an IP asset.
type AssetInput struct {
	Type         AssetType
	AssetNumber  string
	Title        string
	Assignee     string
	Inventor     string
	Jurisdiction string
	FilingDate   *time.Time
	Status       string
	Class        string
	Details      string
	APISource    string
}

/*
CreateAsset saves a new IP asset.

Parameters:
  - context: context.Context
  - createdBy: string (Username of the capturing analyst)
  - input: AssetInput

Returns:
  - *IPAsset: Created asset
  - error: ValidationError on bad type, Conflict on duplicate asset number
*/
func (service *Service) CreateAsset(context context.Context, createdBy string, input AssetInput) (*IPAsset, error) {
	if !input.Type.Valid() {
		return nil, apperr.ValidationError("Unknown asset type")
	}

	asset := &IPAsset{
		ID:           uuid.New().String(),
		Type:         input.Type,
		AssetNumber:  input.AssetNumber,
		Title:        input.Title,
		Assignee:     input.Assignee,
		Inventor:     input.Inventor,
		Jurisdiction: input.Jurisdiction,
		FilingDate:   input.FilingDate,
		Status:       input.Status,
		Class:        input.Class,
		Details:      input.Details,
		APISource:    input.APISource,
		CreatedBy:    createdBy,
	}
	if err := service.assets.Create(context, asset); err != nil {
		return nil, fmt.Errorf("patent_service_create_failed: %w", err)
	}
	return asset, nil
}

// GetAsset fetches one asset.
func (service *Service) GetAsset(context context.Context, id string) (*IPAsset, error) {
	return service.assets.FindByID(context, id)
}

/*
UpdateAsset overwrites the writable fields of an existing asset.
*/
func (service *Service) UpdateAsset(context context.Context, id string, input AssetInput) (*IPAsset, error) {
	if !input.Type.Valid() {
		return nil, apperr.ValidationError("Unknown asset type")
	}

	asset, err := service.assets.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	asset.Type = input.Type
	asset.AssetNumber = input.AssetNumber
	asset.Title = input.Title
	asset.Assignee = input.Assignee
	asset.Inventor = input.Inventor
	asset.Jurisdiction = input.Jurisdiction
	asset.FilingDate = input.FilingDate
	asset.Status = input.Status
	asset.Class = input.Class
	asset.Details = input.Details
	asset.APISource = input.APISource

	if err := service.assets.Update(context, asset); err != nil {
		return nil, fmt.Errorf("patent_service_update_failed: %w", err)
	}
	return asset, nil
}

// DeleteAsset removes one asset.
func (service *Service) DeleteAsset(context context.Context, id string) error {
	return service.assets.Delete(context, id)
}

// ListAssets returns a page of assets, most recently updated first.
func (service *Service) ListAssets(context context.Context, params pagination.Params) ([]IPAsset, *pagination.Meta, error) {
	assets, total, err := service.assets.List(context, params.Limit, params.Offset())
	if err != nil {
		return nil, nil, err
	}
	meta := pagination.NewMeta(params.Page, params.Limit, total)
	return assets, &meta, nil
}
