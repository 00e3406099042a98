// Package ingestion - Profile import pipeline
// Strictly separated from calculation: load → fingerprint → store
package ingestion

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"embroidery-pricing/adapters/profiles"
	"embroidery-pricing/core/determinism"
	"embroidery-pricing/core/types"
	"embroidery-pricing/db"
	"embroidery-pricing/internal/errors"
	"embroidery-pricing/internal/logging"
)

// Batch records one import of a profile catalog
type Batch struct {
	ID                 uuid.UUID `json:"id"`
	Source             string    `json:"source"`
	ContentHash        string    `json:"content_hash"`
	ShippingProfiles   int       `json:"shipping_profiles"`
	PriceProfiles      int       `json:"price_profiles"`
	DigitizingProfiles int       `json:"digitizing_profiles"`
	Variants           int       `json:"variants"`
	ImportedAt         time.Time `json:"imported_at"`

	// Skipped is set when an identical catalog was already imported
	Skipped bool `json:"skipped"`
}

// content is the hashed view of a catalog; listers return sorted slices
type content struct {
	Shipping   []types.ShippingProfile   `json:"shipping"`
	Price      []types.PriceProfile      `json:"price"`
	Digitizing []types.DigitizingProfile `json:"digitizing"`
	Variants   []types.Variant           `json:"variants"`
}

// Pipeline writes profile catalogs into the SQL store
type Pipeline struct {
	store  *db.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewPipeline creates an import pipeline over store
func NewPipeline(store *db.Store, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:  store,
		logger: logging.OrNop(logger).Named("ingestion"),
		now:    time.Now,
	}
}

// Import writes every profile and variant in catalog inside one transaction.
// Re-importing identical content returns the earlier batch with Skipped set,
// unless a default the catalog names has since moved to another profile.
func (p *Pipeline) Import(ctx context.Context, source string, catalog *profiles.Catalog) (*Batch, error) {
	c := content{
		Shipping:   catalog.ShippingProfiles(),
		Price:      catalog.PriceProfiles(),
		Digitizing: catalog.DigitizingProfiles(),
		Variants:   catalog.Variants(),
	}
	hash, err := determinism.Fingerprint("profile-import", c)
	if err != nil {
		return nil, errors.Internal("fingerprint catalog", err)
	}

	existing, err := p.findBatch(ctx, string(hash))
	if err != nil {
		return nil, err
	}
	stale, err := p.defaultsMoved(ctx, c)
	if err != nil {
		return nil, err
	}
	if existing != nil && !stale {
		existing.Skipped = true
		p.logger.Info("catalog already imported",
			zap.String("batch_id", existing.ID.String()),
			zap.String("content_hash", existing.ContentHash))
		return existing, nil
	}

	batch := &Batch{
		ID:                 uuid.New(),
		Source:             source,
		ContentHash:        string(hash),
		ShippingProfiles:   len(c.Shipping),
		PriceProfiles:      len(c.Price),
		DigitizingProfiles: len(c.Digitizing),
		Variants:           len(c.Variants),
		ImportedAt:         p.now().UTC(),
	}

	err = p.store.InTx(ctx, func(tx *db.TxStore) error {
		// only tenants whose catalog names a default lose their previous one;
		// clearing first keeps a moved default clear of the unique index
		shipping, price := c.defaultTenants()
		for _, tenant := range shipping {
			if err := tx.Exec(ctx, `UPDATE shipping_profiles SET is_default = FALSE WHERE tenant_id = ?`, tenant); err != nil {
				return err
			}
		}
		for _, tenant := range price {
			if err := tx.Exec(ctx, `UPDATE price_profiles SET is_default = FALSE WHERE tenant_id = ?`, tenant); err != nil {
				return err
			}
		}
		for _, sp := range c.Shipping {
			if err := tx.SaveShippingProfile(ctx, sp); err != nil {
				return err
			}
		}
		for _, pp := range c.Price {
			if err := tx.SavePriceProfile(ctx, pp); err != nil {
				return err
			}
		}
		for _, dp := range c.Digitizing {
			if err := tx.SaveDigitizingProfile(ctx, dp); err != nil {
				return err
			}
		}
		for _, v := range c.Variants {
			if err := tx.SaveVariant(ctx, v); err != nil {
				return err
			}
		}
		return tx.Exec(ctx, `INSERT INTO import_batches
			(id, source, content_hash, shipping_profiles, price_profiles, digitizing_profiles, variants, imported_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			batch.ID.String(), batch.Source, batch.ContentHash,
			batch.ShippingProfiles, batch.PriceProfiles, batch.DigitizingProfiles, batch.Variants,
			batch.ImportedAt.Format(time.RFC3339Nano))
	})
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", source, err)
	}

	p.logger.Info("catalog imported",
		zap.String("batch_id", batch.ID.String()),
		zap.String("source", source),
		zap.Int("shipping_profiles", batch.ShippingProfiles),
		zap.Int("price_profiles", batch.PriceProfiles),
		zap.Int("digitizing_profiles", batch.DigitizingProfiles),
		zap.Int("variants", batch.Variants))
	return batch, nil
}

// ImportPath loads HCL profiles from path and imports them
func (p *Pipeline) ImportPath(ctx context.Context, path string) (*Batch, error) {
	catalog, err := profiles.NewLoader().LoadPath(path)
	if err != nil {
		return nil, err
	}
	return p.Import(ctx, path, catalog)
}

// Batches lists past imports, newest first
func (p *Pipeline) Batches(ctx context.Context) ([]Batch, error) {
	rows, err := p.store.DB().QueryContext(ctx, batchSelect+` ORDER BY imported_at DESC`)
	if err != nil {
		return nil, errors.Storage("query import batches", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage("iterate import batches", err)
	}
	return batches, nil
}

// defaultTenants returns the tenants that name a default shipping profile
// and those that name a default price profile
func (c content) defaultTenants() (shipping, price []string) {
	for _, sp := range c.Shipping {
		if sp.IsDefault {
			shipping = append(shipping, sp.TenantID)
		}
	}
	for _, pp := range c.Price {
		if pp.IsDefault {
			price = append(price, pp.TenantID)
		}
	}
	return shipping, price
}

// defaultsMoved reports whether a default named by c is no longer the
// stored default for its tenant
func (p *Pipeline) defaultsMoved(ctx context.Context, c content) (bool, error) {
	for _, sp := range c.Shipping {
		if !sp.IsDefault {
			continue
		}
		current, err := p.store.ShippingProfile(ctx, sp.TenantID, "")
		if err != nil {
			return false, err
		}
		if current == nil || current.ID != sp.ID {
			return true, nil
		}
	}
	for _, pp := range c.Price {
		if !pp.IsDefault {
			continue
		}
		current, err := p.store.PriceProfile(ctx, pp.TenantID, "")
		if err != nil {
			return false, err
		}
		if current == nil || current.ID != pp.ID {
			return true, nil
		}
	}
	return false, nil
}

const batchSelect = `SELECT id, source, content_hash, shipping_profiles, price_profiles,
	digitizing_profiles, variants, imported_at FROM import_batches`

func (p *Pipeline) findBatch(ctx context.Context, hash string) (*Batch, error) {
	query := p.store.Rebind(batchSelect + ` WHERE content_hash = ? ORDER BY imported_at DESC LIMIT 1`)
	b, err := scanBatch(p.store.DB().QueryRowContext(ctx, query, hash))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (*Batch, error) {
	var (
		b         Batch
		id, stamp string
	)
	err := row.Scan(&id, &b.Source, &b.ContentHash, &b.ShippingProfiles, &b.PriceProfiles,
		&b.DigitizingProfiles, &b.Variants, &stamp)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Storage("scan import batch", err)
	}
	if b.ID, err = uuid.Parse(id); err != nil {
		return nil, errors.Storage("parse import batch id", err)
	}
	if b.ImportedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
		return nil, errors.Storage("parse import batch time", err)
	}
	return &b, nil
}
