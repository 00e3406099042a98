// Package rates provides carrier rate providers for the engine.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"embroidery-pricing/core/types"
	"embroidery-pricing/internal/errors"
)

// Static returns the same rate list for every shipment
type Static struct {
	rates []types.RawRate
}

// NewStatic creates a provider over a fixed rate list
func NewStatic(rates []types.RawRate) *Static {
	return &Static{rates: rates}
}

// LoadStatic reads a JSON array of raw rates, or an object with a "rates" array
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.InvalidConfiguration(fmt.Sprintf("read rates file %s", path), err)
	}

	var list []types.RawRate
	if err := json.Unmarshal(data, &list); err != nil {
		var doc rateResponse
		if err2 := json.Unmarshal(data, &doc); err2 != nil {
			return nil, errors.InvalidConfiguration(fmt.Sprintf("parse rates file %s", path), err)
		}
		list = doc.Rates
	}
	return NewStatic(list), nil
}

// Quote returns a copy of the configured rates
func (s *Static) Quote(ctx context.Context, _ types.Shipment) ([]types.RawRate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]types.RawRate, len(s.rates))
	copy(out, s.rates)
	return out, nil
}

// rateResponse is the JSON body carrying a rate list
type rateResponse struct {
	Rates []types.RawRate `json:"rates"`
}
