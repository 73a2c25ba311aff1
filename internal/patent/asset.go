// Copyright (c) 2026 IP Platform. All rights reserved.

/*
Package patent exposes the intellectual-property surface: a proxy over the
external patent-search provider (with a Redis read-through cache) and CRUD
for IP assets saved by analysts.
*/
package patent

import "time"

// # Asset Types

// AssetType categorizes a saved IP asset.
type AssetType string

const (
	AssetPatent    AssetType = "PATENT"
	AssetTrademark AssetType = "TRADEMARK"
	AssetDesign    AssetType = "DESIGN"
	AssetCopyright AssetType = "COPYRIGHT"
)

// Valid reports whether the type is a known asset category.
func (t AssetType) Valid() bool {
	switch t {
	case AssetPatent, AssetTrademark, AssetDesign, AssetCopyright:
		return true
	}
	return false
}

// # Entities

// IPAsset is a saved intellectual-property record, typically captured from a
// search result and enriched by an analyst.
type IPAsset struct {
	ID           string     `json:"id"`
	Type         AssetType  `json:"type"`
	AssetNumber  string     `json:"asset_number"`
	Title        string     `json:"title"`
	Assignee     string     `json:"assignee,omitempty"`
	Inventor     string     `json:"inventor,omitempty"`
	Jurisdiction string     `json:"jurisdiction,omitempty"`
	FilingDate   *time.Time `json:"filing_date,omitempty"`
	Status       string     `json:"status,omitempty"`
	Class        string     `json:"class,omitempty"`
	Details      string     `json:"details,omitempty"`
	APISource    string     `json:"api_source,omitempty"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUpdated  time.Time  `json:"last_updated"`
}

// # Field Identifiers

const (
	FieldAssetType    = "type"
	FieldAssetNumber  = "asset_number"
	FieldTitle        = "title"
	FieldQuery        = "q"
	FieldJurisdiction = "jurisdiction"
)
