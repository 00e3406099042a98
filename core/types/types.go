// Package types defines core domain types shared across all layers.
// This package contains NO business logic - only type definitions and
// the closed enums that replace the legacy integer and string codes.
package types

import "strings"

// ProfileType selects how a shipping profile computes cost
type ProfileType string

const (
	// ProfileTypeQuantityBased prices from per-class rate tiers (legacy code 0)
	ProfileTypeQuantityBased ProfileType = "quantity_based"
	// ProfileTypeAPIBased defers to carrier rates plus a markup (legacy code 1)
	ProfileTypeAPIBased ProfileType = "api_based"
	// ProfileTypeUnsupported is any type the engine does not recognize
	ProfileTypeUnsupported ProfileType = "unsupported"
	// ProfileTypeNone tags results computed without any profile
	ProfileTypeNone ProfileType = "none"
)

// ProfileTypeFromCode maps a stored integer type code to a ProfileType
func ProfileTypeFromCode(code int) ProfileType {
	switch code {
	case 0:
		return ProfileTypeQuantityBased
	case 1:
		return ProfileTypeAPIBased
	default:
		return ProfileTypeUnsupported
	}
}

// ParseProfileType maps a configuration name to a ProfileType
func ParseProfileType(name string) ProfileType {
	switch ProfileType(strings.TrimSpace(name)) {
	case ProfileTypeQuantityBased:
		return ProfileTypeQuantityBased
	case ProfileTypeAPIBased:
		return ProfileTypeAPIBased
	default:
		return ProfileTypeUnsupported
	}
}

// String returns the string representation
func (t ProfileType) String() string {
	return string(t)
}

// AdjustmentKind is how an adjustment amount is applied
type AdjustmentKind string

const (
	// AdjustmentPercent scales the running amount by amount/100
	AdjustmentPercent AdjustmentKind = "percent"
	// AdjustmentFlat adds the amount unscaled
	AdjustmentFlat AdjustmentKind = "flat"
)

// ParseAdjustmentKind reads a stored difference type. "0" and "percent" both
// mean percent; every other value is the flat branch.
func ParseAdjustmentKind(code string) AdjustmentKind {
	switch strings.TrimSpace(code) {
	case "0", string(AdjustmentPercent):
		return AdjustmentPercent
	default:
		return AdjustmentFlat
	}
}

// String returns the string representation
func (k AdjustmentKind) String() string {
	return string(k)
}

// WeightClass partitions shipped units for tier pricing
type WeightClass string

const (
	WeightHeavy WeightClass = "heavy"
	WeightLight WeightClass = "light"
)
