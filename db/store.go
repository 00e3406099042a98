package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/shopspring/decimal"

	"embroidery-pricing/core/money"
	"embroidery-pricing/core/types"
	"embroidery-pricing/internal/errors"
)

// Store reads and writes tenant profiles and variants. It satisfies the
// engine's profile and variant sources.
type Store struct {
	db     *sql.DB
	driver string
}

// NewStore creates a store over an open database
func NewStore(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// DB returns the underlying handle
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the driver name the store was opened with
func (s *Store) Driver() string {
	return s.driver
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Rebind rewrites ? placeholders for the store's driver
func (s *Store) Rebind(query string) string {
	return rebind(s.driver, query)
}

// typeCode maps a profile type to its stored integer code
func typeCode(t types.ProfileType) int {
	switch t {
	case types.ProfileTypeQuantityBased:
		return 0
	case types.ProfileTypeAPIBased:
		return 1
	default:
		return -1
	}
}

const shippingColumns = `tenant_id, id, name, type_code, is_default,
	heavy_first, heavy_second, heavy_additional,
	light_first, light_second, light_additional,
	difference_type, difference_amount`

// ShippingProfile returns the named profile, or the tenant default when
// profileID is empty. Absent profiles are (nil, nil).
func (s *Store) ShippingProfile(ctx context.Context, tenantID, profileID string) (*types.ShippingProfile, error) {
	query := `SELECT ` + shippingColumns + ` FROM shipping_profiles WHERE tenant_id = ? AND id = ?`
	args := []any{tenantID, profileID}
	if profileID == "" {
		query = `SELECT ` + shippingColumns + ` FROM shipping_profiles WHERE tenant_id = ? AND is_default`
		args = args[:1]
	}

	var (
		p                      types.ShippingProfile
		code                   int
		hf, hs, ha, lf, ls, la string
		diffType, diffAmount   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, s.Rebind(query), args...).Scan(
		&p.TenantID, &p.ID, &p.Name, &code, &p.IsDefault,
		&hf, &hs, &ha, &lf, &ls, &la,
		&diffType, &diffAmount,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Storage("query shipping profile", err)
	}

	p.Type = types.ProfileTypeFromCode(code)
	if p.Heavy, err = parseTier(hf, hs, ha); err != nil {
		return nil, corrupt("shipping_profiles", p.ID, err)
	}
	if p.Light, err = parseTier(lf, ls, la); err != nil {
		return nil, corrupt("shipping_profiles", p.ID, err)
	}
	if diffType.Valid && diffAmount.Valid {
		amount, err := money.Parse(diffAmount.String)
		if err != nil {
			return nil, corrupt("shipping_profiles", p.ID, err)
		}
		p.Adjustment = &types.AdjustmentStep{
			Kind:   types.ParseAdjustmentKind(diffType.String),
			Amount: amount,
		}
	}

	if p.Methods, err = s.shippingMethods(ctx, p.TenantID, p.ID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) shippingMethods(ctx context.Context, tenantID, profileID string) ([]types.ShippingMethod, error) {
	rows, err := s.db.QueryContext(ctx, s.Rebind(`SELECT name, extra_fee FROM shipping_methods
		WHERE tenant_id = ? AND profile_id = ? ORDER BY position`), tenantID, profileID)
	if err != nil {
		return nil, errors.Storage("query shipping methods", err)
	}
	defer rows.Close()

	var methods []types.ShippingMethod
	for rows.Next() {
		var name, fee string
		if err := rows.Scan(&name, &fee); err != nil {
			return nil, errors.Storage("scan shipping method", err)
		}
		amount, err := money.Parse(fee)
		if err != nil {
			return nil, corrupt("shipping_methods", name, err)
		}
		methods = append(methods, types.ShippingMethod{Name: name, ExtraFee: amount})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage("iterate shipping methods", err)
	}
	return methods, nil
}

const priceColumns = `tenant_id, id, name, is_default, discount_type, discount_amount, stitch_price, gift_note_price`

// PriceProfile returns the named profile, or the tenant default when
// profileID is empty. Absent profiles are (nil, nil).
func (s *Store) PriceProfile(ctx context.Context, tenantID, profileID string) (*types.PriceProfile, error) {
	query := `SELECT ` + priceColumns + ` FROM price_profiles WHERE tenant_id = ? AND id = ?`
	args := []any{tenantID, profileID}
	if profileID == "" {
		query = `SELECT ` + priceColumns + ` FROM price_profiles WHERE tenant_id = ? AND is_default`
		args = args[:1]
	}

	var (
		p                                    types.PriceProfile
		discountType, discount, stitch, gift string
	)
	err := s.db.QueryRowContext(ctx, s.Rebind(query), args...).Scan(
		&p.TenantID, &p.ID, &p.Name, &p.IsDefault, &discountType, &discount, &stitch, &gift,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Storage("query price profile", err)
	}

	p.Discount.Type = types.ParseAdjustmentKind(discountType)
	if p.Discount.Amount, err = money.Parse(discount); err != nil {
		return nil, corrupt("price_profiles", p.ID, err)
	}
	if p.StitchPrice, err = money.Parse(stitch); err != nil {
		return nil, corrupt("price_profiles", p.ID, err)
	}
	if p.GiftNotePrice, err = money.Parse(gift); err != nil {
		return nil, corrupt("price_profiles", p.ID, err)
	}

	rows, err := s.db.QueryContext(ctx, s.Rebind(`SELECT variant_id, discount_type, discount_amount
		FROM discount_overrides WHERE tenant_id = ? AND profile_id = ? ORDER BY variant_id`), p.TenantID, p.ID)
	if err != nil {
		return nil, errors.Storage("query discount overrides", err)
	}
	defer rows.Close()

	for rows.Next() {
		var variantID, kind, amount string
		if err := rows.Scan(&variantID, &kind, &amount); err != nil {
			return nil, errors.Storage("scan discount override", err)
		}
		value, err := money.Parse(amount)
		if err != nil {
			return nil, corrupt("discount_overrides", variantID, err)
		}
		p.Overrides = append(p.Overrides, types.DiscountOverride{
			VariantID: variantID,
			Rule:      types.DiscountRule{Type: types.ParseAdjustmentKind(kind), Amount: value},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage("iterate discount overrides", err)
	}
	return &p, nil
}

// DigitizingProfile returns the tenant's digitizing profile or (nil, nil)
func (s *Store) DigitizingProfile(ctx context.Context, tenantID string) (*types.DigitizingProfile, error) {
	var (
		p                               types.DigitizingProfile
		base, rush, rate, width, height string
	)
	err := s.db.QueryRowContext(ctx, s.Rebind(`SELECT tenant_id, base_price, rush_multiplier, complexity_threshold,
		complexity_rate, default_width, default_height, default_color_count
		FROM digitizing_profiles WHERE tenant_id = ?`), tenantID).Scan(
		&p.TenantID, &base, &rush, &p.ComplexityThreshold, &rate, &width, &height, &p.DefaultColorCount,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Storage("query digitizing profile", err)
	}

	if p.BasePrice, err = money.Parse(base); err != nil {
		return nil, corrupt("digitizing_profiles", tenantID, err)
	}
	if p.ComplexityRate, err = money.Parse(rate); err != nil {
		return nil, corrupt("digitizing_profiles", tenantID, err)
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		raw string
	}{{&p.RushMultiplier, rush}, {&p.DefaultWidth, width}, {&p.DefaultHeight, height}} {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, corrupt("digitizing_profiles", tenantID, err)
		}
		*f.dst = d
	}
	return &p, nil
}

// Variant returns a catalog variant or (nil, nil)
func (s *Store) Variant(ctx context.Context, variantID, tenantID string) (*types.Variant, error) {
	var (
		v     types.Variant
		price string
	)
	err := s.db.QueryRowContext(ctx, s.Rebind(`SELECT tenant_id, id, sku, base_price, is_heavy
		FROM variants WHERE tenant_id = ? AND id = ?`), tenantID, variantID).Scan(
		&v.TenantID, &v.ID, &v.SKU, &price, &v.IsHeavy,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Storage("query variant", err)
	}
	if v.BasePrice, err = money.Parse(price); err != nil {
		return nil, corrupt("variants", variantID, err)
	}
	return &v, nil
}

// SaveShippingProfile inserts or replaces a shipping profile and its methods
func (s *Store) SaveShippingProfile(ctx context.Context, p types.ShippingProfile) error {
	return s.inTx(ctx, func(tx *sql.Tx) error { return s.saveShipping(ctx, tx, p) })
}

// SavePriceProfile inserts or replaces a price profile and its overrides
func (s *Store) SavePriceProfile(ctx context.Context, p types.PriceProfile) error {
	return s.inTx(ctx, func(tx *sql.Tx) error { return s.savePrice(ctx, tx, p) })
}

// SaveDigitizingProfile inserts or replaces a tenant's digitizing profile
func (s *Store) SaveDigitizingProfile(ctx context.Context, p types.DigitizingProfile) error {
	return s.saveDigitizing(ctx, s.db, p)
}

// SaveVariant inserts or replaces a variant
func (s *Store) SaveVariant(ctx context.Context, v types.Variant) error {
	return s.saveVariant(ctx, s.db, v)
}

// InTx runs fn with a store bound to one transaction
func (s *Store) InTx(ctx context.Context, fn func(tx *TxStore) error) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&TxStore{store: s, tx: tx})
	})
}

// TxStore writes through a single transaction
type TxStore struct {
	store *Store
	tx    *sql.Tx
}

// SaveShippingProfile writes a shipping profile inside the transaction
func (t *TxStore) SaveShippingProfile(ctx context.Context, p types.ShippingProfile) error {
	return t.store.saveShipping(ctx, t.tx, p)
}

// SavePriceProfile writes a price profile inside the transaction
func (t *TxStore) SavePriceProfile(ctx context.Context, p types.PriceProfile) error {
	return t.store.savePrice(ctx, t.tx, p)
}

// SaveDigitizingProfile writes a digitizing profile inside the transaction
func (t *TxStore) SaveDigitizingProfile(ctx context.Context, p types.DigitizingProfile) error {
	return t.store.saveDigitizing(ctx, t.tx, p)
}

// SaveVariant writes a variant inside the transaction
func (t *TxStore) SaveVariant(ctx context.Context, v types.Variant) error {
	return t.store.saveVariant(ctx, t.tx, v)
}

// Exec runs a raw statement inside the transaction with ? placeholders
func (t *TxStore) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := t.tx.ExecContext(ctx, t.store.Rebind(query), args...); err != nil {
		return errors.Storage("exec", err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Storage("begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Storage("commit transaction", err)
	}
	return nil
}

func (s *Store) saveShipping(ctx context.Context, q queryer, p types.ShippingProfile) error {
	var diffType, diffAmount sql.NullString
	if p.Adjustment != nil {
		diffType = sql.NullString{String: p.Adjustment.Kind.String(), Valid: true}
		diffAmount = sql.NullString{String: p.Adjustment.Amount.Decimal().String(), Valid: true}
	}

	_, err := q.ExecContext(ctx, s.Rebind(`INSERT INTO shipping_profiles (`+shippingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			name = excluded.name,
			type_code = excluded.type_code,
			is_default = excluded.is_default,
			heavy_first = excluded.heavy_first,
			heavy_second = excluded.heavy_second,
			heavy_additional = excluded.heavy_additional,
			light_first = excluded.light_first,
			light_second = excluded.light_second,
			light_additional = excluded.light_additional,
			difference_type = excluded.difference_type,
			difference_amount = excluded.difference_amount`),
		p.TenantID, p.ID, p.Name, typeCode(p.Type), p.IsDefault,
		text(p.Heavy.First), text(p.Heavy.Second), text(p.Heavy.Additional),
		text(p.Light.First), text(p.Light.Second), text(p.Light.Additional),
		diffType, diffAmount,
	)
	if err != nil {
		return errors.Storage("save shipping profile", err).WithContext("id", p.ID)
	}

	if _, err := q.ExecContext(ctx, s.Rebind(`DELETE FROM shipping_methods WHERE tenant_id = ? AND profile_id = ?`),
		p.TenantID, p.ID); err != nil {
		return errors.Storage("clear shipping methods", err)
	}
	for i, m := range p.Methods {
		if _, err := q.ExecContext(ctx, s.Rebind(`INSERT INTO shipping_methods (tenant_id, profile_id, name, extra_fee, position)
			VALUES (?, ?, ?, ?, ?)`), p.TenantID, p.ID, m.Name, text(m.ExtraFee), i); err != nil {
			return errors.Storage("save shipping method", err).WithContext("name", m.Name)
		}
	}
	return nil
}

func (s *Store) savePrice(ctx context.Context, q queryer, p types.PriceProfile) error {
	_, err := q.ExecContext(ctx, s.Rebind(`INSERT INTO price_profiles (`+priceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			name = excluded.name,
			is_default = excluded.is_default,
			discount_type = excluded.discount_type,
			discount_amount = excluded.discount_amount,
			stitch_price = excluded.stitch_price,
			gift_note_price = excluded.gift_note_price`),
		p.TenantID, p.ID, p.Name, p.IsDefault, p.Discount.Type.String(), text(p.Discount.Amount),
		text(p.StitchPrice), text(p.GiftNotePrice),
	)
	if err != nil {
		return errors.Storage("save price profile", err).WithContext("id", p.ID)
	}

	if _, err := q.ExecContext(ctx, s.Rebind(`DELETE FROM discount_overrides WHERE tenant_id = ? AND profile_id = ?`),
		p.TenantID, p.ID); err != nil {
		return errors.Storage("clear discount overrides", err)
	}
	for _, o := range p.Overrides {
		if _, err := q.ExecContext(ctx, s.Rebind(`INSERT INTO discount_overrides
			(tenant_id, profile_id, variant_id, discount_type, discount_amount) VALUES (?, ?, ?, ?, ?)`),
			p.TenantID, p.ID, o.VariantID, o.Rule.Type.String(), text(o.Rule.Amount)); err != nil {
			return errors.Storage("save discount override", err).WithContext("variant_id", o.VariantID)
		}
	}
	return nil
}

func (s *Store) saveDigitizing(ctx context.Context, q queryer, p types.DigitizingProfile) error {
	_, err := q.ExecContext(ctx, s.Rebind(`INSERT INTO digitizing_profiles (tenant_id, base_price, rush_multiplier,
		complexity_threshold, complexity_rate, default_width, default_height, default_color_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id) DO UPDATE SET
			base_price = excluded.base_price,
			rush_multiplier = excluded.rush_multiplier,
			complexity_threshold = excluded.complexity_threshold,
			complexity_rate = excluded.complexity_rate,
			default_width = excluded.default_width,
			default_height = excluded.default_height,
			default_color_count = excluded.default_color_count`),
		p.TenantID, text(p.BasePrice), p.RushMultiplier.String(), p.ComplexityThreshold,
		text(p.ComplexityRate), p.DefaultWidth.String(), p.DefaultHeight.String(), p.DefaultColorCount,
	)
	if err != nil {
		return errors.Storage("save digitizing profile", err).WithContext("tenant_id", p.TenantID)
	}
	return nil
}

func (s *Store) saveVariant(ctx context.Context, q queryer, v types.Variant) error {
	_, err := q.ExecContext(ctx, s.Rebind(`INSERT INTO variants (tenant_id, id, sku, base_price, is_heavy)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			sku = excluded.sku,
			base_price = excluded.base_price,
			is_heavy = excluded.is_heavy`),
		v.TenantID, v.ID, v.SKU, text(v.BasePrice), v.IsHeavy,
	)
	if err != nil {
		return errors.Storage("save variant", err).WithContext("id", v.ID)
	}
	return nil
}

// text renders an exact decimal for a TEXT column
func text(m money.Money) string {
	return m.Decimal().String()
}

func parseTier(first, second, additional string) (types.RateTier, error) {
	var tier types.RateTier
	var err error
	if tier.First, err = money.Parse(first); err != nil {
		return tier, err
	}
	if tier.Second, err = money.Parse(second); err != nil {
		return tier, err
	}
	if tier.Additional, err = money.Parse(additional); err != nil {
		return tier, err
	}
	return tier, nil
}

func corrupt(table, id string, err error) error {
	return errors.Wrap(errors.TypeStorage, fmt.Sprintf("corrupt row in %s (%s)", table, id), err)
}
