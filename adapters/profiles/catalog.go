package profiles

import (
	"context"
	"fmt"
	"sort"

	"embroidery-pricing/core/types"
)

type tenantKey struct {
	tenant string
	id     string
}

// Catalog is an immutable-after-load, in-memory profile and variant source
type Catalog struct {
	shipping   map[tenantKey]types.ShippingProfile
	price      map[tenantKey]types.PriceProfile
	digitizing map[string]types.DigitizingProfile
	variants   map[tenantKey]types.Variant

	defaultShipping map[string]string
	defaultPrice    map[string]string
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		shipping:        make(map[tenantKey]types.ShippingProfile),
		price:           make(map[tenantKey]types.PriceProfile),
		digitizing:      make(map[string]types.DigitizingProfile),
		variants:        make(map[tenantKey]types.Variant),
		defaultShipping: make(map[string]string),
		defaultPrice:    make(map[string]string),
	}
}

// AddShipping registers a shipping profile. IDs are unique per tenant and a
// tenant has at most one default.
func (c *Catalog) AddShipping(p types.ShippingProfile) error {
	key := tenantKey{p.TenantID, p.ID}
	if _, exists := c.shipping[key]; exists {
		return fmt.Errorf("duplicate shipping profile %q for tenant %q", p.ID, p.TenantID)
	}
	if p.IsDefault {
		if prev, ok := c.defaultShipping[p.TenantID]; ok {
			return fmt.Errorf("tenant %q has two default shipping profiles: %q and %q", p.TenantID, prev, p.ID)
		}
		c.defaultShipping[p.TenantID] = p.ID
	}
	c.shipping[key] = p
	return nil
}

// AddPrice registers a price profile
func (c *Catalog) AddPrice(p types.PriceProfile) error {
	key := tenantKey{p.TenantID, p.ID}
	if _, exists := c.price[key]; exists {
		return fmt.Errorf("duplicate price profile %q for tenant %q", p.ID, p.TenantID)
	}
	if p.IsDefault {
		if prev, ok := c.defaultPrice[p.TenantID]; ok {
			return fmt.Errorf("tenant %q has two default price profiles: %q and %q", p.TenantID, prev, p.ID)
		}
		c.defaultPrice[p.TenantID] = p.ID
	}
	c.price[key] = p
	return nil
}

// AddDigitizing registers the digitizing profile of a tenant
func (c *Catalog) AddDigitizing(p types.DigitizingProfile) error {
	if _, exists := c.digitizing[p.TenantID]; exists {
		return fmt.Errorf("duplicate digitizing profile for tenant %q", p.TenantID)
	}
	c.digitizing[p.TenantID] = p
	return nil
}

// AddVariant registers a catalog variant
func (c *Catalog) AddVariant(v types.Variant) error {
	key := tenantKey{v.TenantID, v.ID}
	if _, exists := c.variants[key]; exists {
		return fmt.Errorf("duplicate variant %q for tenant %q", v.ID, v.TenantID)
	}
	c.variants[key] = v
	return nil
}

// ShippingProfile returns the named profile, or the tenant default when
// profileID is empty
func (c *Catalog) ShippingProfile(_ context.Context, tenantID, profileID string) (*types.ShippingProfile, error) {
	if profileID == "" {
		id, ok := c.defaultShipping[tenantID]
		if !ok {
			return nil, nil
		}
		profileID = id
	}
	p, ok := c.shipping[tenantKey{tenantID, profileID}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// PriceProfile returns the named profile, or the tenant default when
// profileID is empty
func (c *Catalog) PriceProfile(_ context.Context, tenantID, profileID string) (*types.PriceProfile, error) {
	if profileID == "" {
		id, ok := c.defaultPrice[tenantID]
		if !ok {
			return nil, nil
		}
		profileID = id
	}
	p, ok := c.price[tenantKey{tenantID, profileID}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// DigitizingProfile returns the tenant's digitizing profile
func (c *Catalog) DigitizingProfile(_ context.Context, tenantID string) (*types.DigitizingProfile, error) {
	p, ok := c.digitizing[tenantID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Variant returns a catalog variant
func (c *Catalog) Variant(_ context.Context, variantID, tenantID string) (*types.Variant, error) {
	v, ok := c.variants[tenantKey{tenantID, variantID}]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// Summary counts what a catalog holds
type Summary struct {
	Tenants            []string `json:"tenants"`
	ShippingProfiles   int      `json:"shipping_profiles"`
	PriceProfiles      int      `json:"price_profiles"`
	DigitizingProfiles int      `json:"digitizing_profiles"`
	Variants           int      `json:"variants"`
}

// Summary describes the catalog contents with tenants sorted
func (c *Catalog) Summary() Summary {
	tenants := make(map[string]struct{})
	for k := range c.shipping {
		tenants[k.tenant] = struct{}{}
	}
	for k := range c.price {
		tenants[k.tenant] = struct{}{}
	}
	for t := range c.digitizing {
		tenants[t] = struct{}{}
	}
	for k := range c.variants {
		tenants[k.tenant] = struct{}{}
	}

	s := Summary{
		Tenants:            make([]string, 0, len(tenants)),
		ShippingProfiles:   len(c.shipping),
		PriceProfiles:      len(c.price),
		DigitizingProfiles: len(c.digitizing),
		Variants:           len(c.variants),
	}
	for t := range tenants {
		s.Tenants = append(s.Tenants, t)
	}
	sort.Strings(s.Tenants)
	return s
}

// ShippingProfiles lists every shipping profile ordered by tenant and id
func (c *Catalog) ShippingProfiles() []types.ShippingProfile {
	out := make([]types.ShippingProfile, 0, len(c.shipping))
	for _, p := range c.shipping {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TenantID != out[j].TenantID {
			return out[i].TenantID < out[j].TenantID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PriceProfiles lists every price profile ordered by tenant and id
func (c *Catalog) PriceProfiles() []types.PriceProfile {
	out := make([]types.PriceProfile, 0, len(c.price))
	for _, p := range c.price {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TenantID != out[j].TenantID {
			return out[i].TenantID < out[j].TenantID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DigitizingProfiles lists every digitizing profile ordered by tenant
func (c *Catalog) DigitizingProfiles() []types.DigitizingProfile {
	out := make([]types.DigitizingProfile, 0, len(c.digitizing))
	for _, p := range c.digitizing {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out
}

// Variants lists every variant ordered by tenant and id
func (c *Catalog) Variants() []types.Variant {
	out := make([]types.Variant, 0, len(c.variants))
	for _, v := range c.variants {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TenantID != out[j].TenantID {
			return out[i].TenantID < out[j].TenantID
		}
		return out[i].ID < out[j].ID
	})
	return out
}
