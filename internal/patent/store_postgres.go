// Copyright (c) 2026 IP Platform. All rights reserved.

// PostgreSQL implementation of the asset storage contract.
package patent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ipplatform/backend/internal/platform/apperr"
	"github.com/ipplatform/backend/internal/platform/dberr"
)

// PostgresAssetRepository implements [AssetRepository] using pgx.
type PostgresAssetRepository struct {
	pool *pgxpool.Pool
}

// NewAssetRepository creates the PostgreSQL implementation of [AssetRepository].
func NewAssetRepository(pool *pgxpool.Pool) *PostgresAssetRepository {
	return &PostgresAssetRepository{pool: pool}
}

const assetColumns = `
	id, assettype, assetnumber, title, assignee, inventor, jurisdiction, filingdate, status, class, details, apisource, createdby, createdat, lastupdated`

func scanAsset(row pgx.Row) (*IPAsset, error) {
	asset := &IPAsset{}
	err := row.Scan(
		&asset.ID,
		&asset.Type,
		&asset.AssetNumber,
		&asset.Title,
		&asset.Assignee,
		&asset.Inventor,
		&asset.Jurisdiction,
		&asset.FilingDate,
		&asset.Status,
		&asset.Class,
		&asset.Details,
		&asset.APISource,
		&asset.CreatedBy,
		&asset.CreatedAt,
		&asset.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	return asset, nil
}

/*
Create persists a new asset record into the patent.asset table.

Description: The unique constraint on assetnumber surfaces a duplicate
capture as Conflict.

Parameters:
  - context: context.Context
  - asset: *IPAsset

Returns:
  - error: Conflict on duplicates, or connectivity errors
*/
func (repository *PostgresAssetRepository) Create(context context.Context, asset *IPAsset) error {
	const query = `
		INSERT INTO patent.asset (
			id, assettype, assetnumber, title, assignee, inventor, jurisdiction, filingdate, status, class, details, apisource, createdby, createdat, lastupdated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	now := time.Now()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	asset.LastUpdated = now

	_, err := repository.pool.Exec(context, query,
		asset.ID,
		asset.Type,
		asset.AssetNumber,
		asset.Title,
		asset.Assignee,
		asset.Inventor,
		asset.Jurisdiction,
		asset.FilingDate,
		asset.Status,
		asset.Class,
		asset.Details,
		asset.APISource,
		asset.CreatedBy,
		asset.CreatedAt,
		asset.LastUpdated,
	)
	if err != nil {
		return dberr.Wrap(err, "asset_create")
	}
	return nil
}

// FindByID fetches one asset by primary key.
func (repository *PostgresAssetRepository) FindByID(context context.Context, id string) (*IPAsset, error) {
	query := `SELECT ` + assetColumns + ` FROM patent.asset WHERE id = $1`

	asset, err := scanAsset(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Asset not found")
		}
		return nil, fmt.Errorf("asset_find_failed: %w", err)
	}
	return asset, nil
}

// Update persists the mutable fields of an existing asset.
func (repository *PostgresAssetRepository) Update(context context.Context, asset *IPAsset) error {
	const query = `
		UPDATE patent.asset
		SET assettype = $2, assetnumber = $3, title = $4, assignee = $5, inventor = $6,
		    jurisdiction = $7, filingdate = $8, status = $9, class = $10, details = $11,
		    apisource = $12, lastupdated = NOW()
		WHERE id = $1`

	tag, err := repository.pool.Exec(context, query,
		asset.ID,
		asset.Type,
		asset.AssetNumber,
		asset.Title,
		asset.Assignee,
		asset.Inventor,
		asset.Jurisdiction,
		asset.FilingDate,
		asset.Status,
		asset.Class,
		asset.Details,
		asset.APISource,
	)
	if err != nil {
		return dberr.Wrap(err, "asset_update")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Asset not found")
	}
	return nil
}

// Delete removes one asset.
func (repository *PostgresAssetRepository) Delete(context context.Context, id string) error {
	tag, err := repository.pool.Exec(context, `DELETE FROM patent.asset WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("asset_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Asset not found")
	}
	return nil
}

// List returns a page of assets, most recently updated first.
func (repository *PostgresAssetRepository) List(context context.Context, limit, offset int) ([]IPAsset, int, error) {
	query := `SELECT ` + assetColumns + `
		FROM patent.asset
		ORDER BY lastupdated DESC
		LIMIT $1 OFFSET $2`

	rows, err := repository.pool.Query(context, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("asset_list_failed: %w", err)
	}
	defer rows.Close()

	assets := []IPAsset{}
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("asset_scan_failed: %w", err)
		}
		assets = append(assets, *asset)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("asset_rows_failed: %w", err)
	}

	var total int
	if err := repository.pool.QueryRow(context, `SELECT COUNT(*) FROM patent.asset`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("asset_count_failed: %w", err)
	}

	return assets, total, nil
}
