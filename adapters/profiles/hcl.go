// Package profiles loads tenant profiles and variants from HCL files.
package profiles

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"

	"embroidery-pricing/core/money"
	"embroidery-pricing/core/types"
	"embroidery-pricing/internal/errors"
)

// FileExtension marks profile documents inside a directory
const FileExtension = ".hcl"

type document struct {
	Shipping   []shippingBlock   `hcl:"shipping_profile,block"`
	Price      []priceBlock      `hcl:"price_profile,block"`
	Digitizing []digitizingBlock `hcl:"digitizing_profile,block"`
	Variants   []variantBlock    `hcl:"variant,block"`
}

type tierBlock struct {
	First      string `hcl:"first,optional"`
	Second     string `hcl:"second,optional"`
	Additional string `hcl:"additional,optional"`
}

type adjustmentBlock struct {
	Kind   string `hcl:"kind"`
	Amount string `hcl:"amount"`
}

type methodBlock struct {
	Name     string `hcl:"name,label"`
	ExtraFee string `hcl:"extra_fee,optional"`
}

type shippingBlock struct {
	ID         string           `hcl:"id,label"`
	Tenant     string           `hcl:"tenant"`
	Name       string           `hcl:"name,optional"`
	Type       string           `hcl:"type"`
	Default    bool             `hcl:"default,optional"`
	Heavy      *tierBlock       `hcl:"heavy,block"`
	Light      *tierBlock       `hcl:"light,block"`
	Adjustment *adjustmentBlock `hcl:"adjustment,block"`
	Methods    []methodBlock    `hcl:"method,block"`
	DefRange   hcl.Range        `hcl:",def_range"`
}

type overrideBlock struct {
	VariantID string `hcl:"variant,label"`
	Type      string `hcl:"type"`
	Amount    string `hcl:"amount"`
}

type priceBlock struct {
	ID             string          `hcl:"id,label"`
	Tenant         string          `hcl:"tenant"`
	Name           string          `hcl:"name,optional"`
	Default        bool            `hcl:"default,optional"`
	DiscountType   string          `hcl:"discount_type,optional"`
	DiscountAmount string          `hcl:"discount_amount,optional"`
	StitchPrice    string          `hcl:"stitch_price,optional"`
	GiftNotePrice  string          `hcl:"gift_note_price,optional"`
	Overrides      []overrideBlock `hcl:"override,block"`
	DefRange       hcl.Range       `hcl:",def_range"`
}

type digitizingBlock struct {
	Tenant              string    `hcl:"tenant,label"`
	BasePrice           *string   `hcl:"base_price,optional"`
	RushMultiplier      *string   `hcl:"rush_multiplier,optional"`
	ComplexityThreshold *int64    `hcl:"complexity_threshold,optional"`
	ComplexityRate      *string   `hcl:"complexity_rate,optional"`
	DefaultWidth        *string   `hcl:"default_width,optional"`
	DefaultHeight       *string   `hcl:"default_height,optional"`
	DefaultColorCount   *int      `hcl:"default_color_count,optional"`
	DefRange            hcl.Range `hcl:",def_range"`
}

type variantBlock struct {
	ID        string    `hcl:"id,label"`
	Tenant    string    `hcl:"tenant"`
	SKU       string    `hcl:"sku,optional"`
	BasePrice string    `hcl:"base_price"`
	Heavy     bool      `hcl:"heavy,optional"`
	DefRange  hcl.Range `hcl:",def_range"`
}

// Loader parses profile documents
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a new profile loader
func NewLoader() *Loader {
	return &Loader{
		parser: hclparse.NewParser(),
	}
}

// LoadPath loads a single file, or every *.hcl file in a directory in
// lexical order, into one catalog
func (l *Loader) LoadPath(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.InvalidConfiguration("profile path", err)
	}

	files := []string{path}
	if info.IsDir() {
		files = files[:0]
		err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(p, FileExtension) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, errors.InvalidConfiguration("walk profile directory", err)
		}
		sort.Strings(files)
	}

	catalog := NewCatalog()
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.InvalidConfiguration("read profile file", err)
		}
		if err := l.parseInto(catalog, src, file); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

// Parse loads one in-memory document
func (l *Loader) Parse(src []byte, filename string) (*Catalog, error) {
	catalog := NewCatalog()
	if err := l.parseInto(catalog, src, filename); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (l *Loader) parseInto(catalog *Catalog, src []byte, filename string) error {
	file, diags := l.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return diagnosticsError(diags)
	}

	var doc document
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return diagnosticsError(diags)
	}

	for _, b := range doc.Shipping {
		p, err := b.profile()
		if err != nil {
			return err
		}
		if err := catalog.AddShipping(p); err != nil {
			return rangeError(b.DefRange, err.Error())
		}
	}
	for _, b := range doc.Price {
		p, err := b.profile()
		if err != nil {
			return err
		}
		if err := catalog.AddPrice(p); err != nil {
			return rangeError(b.DefRange, err.Error())
		}
	}
	for _, b := range doc.Digitizing {
		p, err := b.profile()
		if err != nil {
			return err
		}
		if err := catalog.AddDigitizing(p); err != nil {
			return rangeError(b.DefRange, err.Error())
		}
	}
	for _, b := range doc.Variants {
		v, err := b.variant()
		if err != nil {
			return err
		}
		if err := catalog.AddVariant(v); err != nil {
			return rangeError(b.DefRange, err.Error())
		}
	}
	return nil
}

// profileType accepts a type name or a legacy numeric code
func profileType(raw string) types.ProfileType {
	if code, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		return types.ProfileTypeFromCode(code)
	}
	return types.ParseProfileType(raw)
}

func (b shippingBlock) profile() (types.ShippingProfile, error) {
	p := types.ShippingProfile{
		ID:        b.ID,
		TenantID:  b.Tenant,
		Name:      b.Name,
		Type:      profileType(b.Type),
		IsDefault: b.Default,
	}

	var err error
	if b.Heavy != nil {
		if p.Heavy, err = b.Heavy.tier(b.DefRange); err != nil {
			return p, err
		}
	}
	if b.Light != nil {
		if p.Light, err = b.Light.tier(b.DefRange); err != nil {
			return p, err
		}
	}
	if b.Adjustment != nil {
		amount, err := parseMoney(b.DefRange, "adjustment.amount", b.Adjustment.Amount)
		if err != nil {
			return p, err
		}
		p.Adjustment = &types.AdjustmentStep{
			Kind:   types.ParseAdjustmentKind(b.Adjustment.Kind),
			Amount: amount,
		}
	}
	for _, m := range b.Methods {
		fee, err := parseMoney(b.DefRange, "method.extra_fee", m.ExtraFee)
		if err != nil {
			return p, err
		}
		p.Methods = append(p.Methods, types.ShippingMethod{Name: m.Name, ExtraFee: fee})
	}
	return p, nil
}

func (t tierBlock) tier(r hcl.Range) (types.RateTier, error) {
	var tier types.RateTier
	var err error
	if tier.First, err = parseMoney(r, "first", t.First); err != nil {
		return tier, err
	}
	if tier.Second, err = parseMoney(r, "second", t.Second); err != nil {
		return tier, err
	}
	if tier.Additional, err = parseMoney(r, "additional", t.Additional); err != nil {
		return tier, err
	}
	return tier, nil
}

func (b priceBlock) profile() (types.PriceProfile, error) {
	p := types.PriceProfile{
		ID:        b.ID,
		TenantID:  b.Tenant,
		Name:      b.Name,
		IsDefault: b.Default,
	}

	var err error
	if p.Discount.Amount, err = parseMoney(b.DefRange, "discount_amount", b.DiscountAmount); err != nil {
		return p, err
	}
	p.Discount.Type = types.ParseAdjustmentKind(b.DiscountType)
	if p.StitchPrice, err = parseMoney(b.DefRange, "stitch_price", b.StitchPrice); err != nil {
		return p, err
	}
	if p.GiftNotePrice, err = parseMoney(b.DefRange, "gift_note_price", b.GiftNotePrice); err != nil {
		return p, err
	}
	for _, o := range b.Overrides {
		amount, err := parseMoney(b.DefRange, "override.amount", o.Amount)
		if err != nil {
			return p, err
		}
		p.Overrides = append(p.Overrides, types.DiscountOverride{
			VariantID: o.VariantID,
			Rule:      types.DiscountRule{Type: types.ParseAdjustmentKind(o.Type), Amount: amount},
		})
	}
	return p, nil
}

// profile starts from types.DefaultDigitizing and overrides only the
// attributes the block sets, so an explicit zero stays zero
func (b digitizingBlock) profile() (types.DigitizingProfile, error) {
	p := types.DefaultDigitizing
	p.TenantID = b.Tenant

	if b.ComplexityThreshold != nil {
		if *b.ComplexityThreshold < 0 {
			return p, rangeError(b.DefRange, "complexity_threshold: must not be negative")
		}
		p.ComplexityThreshold = *b.ComplexityThreshold
	}
	if b.DefaultColorCount != nil {
		if *b.DefaultColorCount < 0 {
			return p, rangeError(b.DefRange, "default_color_count: must not be negative")
		}
		p.DefaultColorCount = *b.DefaultColorCount
	}

	var err error
	for _, f := range []struct {
		dst   *money.Money
		field string
		raw   *string
	}{
		{&p.BasePrice, "base_price", b.BasePrice},
		{&p.ComplexityRate, "complexity_rate", b.ComplexityRate},
	} {
		if f.raw == nil {
			continue
		}
		if *f.dst, err = parseMoney(b.DefRange, f.field, *f.raw); err != nil {
			return p, err
		}
	}
	for _, f := range []struct {
		dst   *decimal.Decimal
		field string
		raw   *string
	}{
		{&p.RushMultiplier, "rush_multiplier", b.RushMultiplier},
		{&p.DefaultWidth, "default_width", b.DefaultWidth},
		{&p.DefaultHeight, "default_height", b.DefaultHeight},
	} {
		if f.raw == nil {
			continue
		}
		if *f.dst, err = parseDecimal(b.DefRange, f.field, *f.raw); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (b variantBlock) variant() (types.Variant, error) {
	price, err := parseMoney(b.DefRange, "base_price", b.BasePrice)
	if err != nil {
		return types.Variant{}, err
	}
	return types.Variant{
		ID:        b.ID,
		TenantID:  b.Tenant,
		SKU:       b.SKU,
		BasePrice: price,
		IsHeavy:   b.Heavy,
	}, nil
}

func parseMoney(r hcl.Range, field, raw string) (money.Money, error) {
	m, err := money.Parse(raw)
	if err != nil {
		return money.Zero(), rangeError(r, fmt.Sprintf("%s: %v", field, err))
	}
	return m, nil
}

func parseDecimal(r hcl.Range, field, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, rangeError(r, fmt.Sprintf("%s: invalid decimal %q", field, raw))
	}
	return d, nil
}

func rangeError(r hcl.Range, message string) error {
	return errors.Newf(errors.TypeInvalidConfiguration, "%s:%d: %s", r.Filename, r.Start.Line, message)
}

// diagnosticsError reports the first error diagnostic with its position
func diagnosticsError(diags hcl.Diagnostics) error {
	for _, diag := range diags {
		if diag.Severity != hcl.DiagError {
			continue
		}
		msg := diag.Summary
		if diag.Detail != "" {
			msg += ": " + diag.Detail
		}
		if diag.Subject != nil {
			return rangeError(*diag.Subject, msg)
		}
		return errors.New(errors.TypeInvalidConfiguration, msg)
	}
	return errors.New(errors.TypeInvalidConfiguration, diags.Error())
}
