// Package cmd - calculation commands: ship, rates, price, quote
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"embroidery-pricing/adapters/storage"
	"embroidery-pricing/core/engine"
	"embroidery-pricing/core/money"
	"embroidery-pricing/core/types"
	"embroidery-pricing/internal/metrics"
)

var (
	calcTenant  string
	calcProfile string
	calcFile    string
	calcItems   []string

	quoteWidth    string
	quoteHeight   string
	quoteColors   int
	quoteStitches int64
	quoteRush     bool
)

var shipCmd = &cobra.Command{
	Use:   "ship",
	Short: "Calculate the shipping cost of an order",
	Long: `Calculate the shipping cost of an order from the tenant's shipping profile.

Items are given as variant:quantity, with an optional :heavy suffix, or as a
JSON request file with an "items" array.

Examples:
  embroidery-pricing ship --tenant acme --item shirt:2 --item hoodie:1:heavy
  embroidery-pricing ship --tenant acme --profile express --file order.json`,
	RunE: runShip,
}

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Fetch carrier rates adjusted by a shipping profile",
	Long: `Fetch carrier rates for a shipment and apply the profile adjustment and
method fees. The shipment is read from a JSON file ("-" for stdin).

Example:
  embroidery-pricing rates --tenant acme --profile carrier --file shipment.json`,
	RunE: runRates,
}

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Price an order",
	Long: `Price an order from the tenant's price profile.

Items are given as variant:quantity with an optional :stitches suffix, or as a
JSON request file with an "items" array.

Examples:
  embroidery-pricing price --tenant acme --item shirt:2:4000
  embroidery-pricing price --tenant acme --file order.json`,
	RunE: runPrice,
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Quote a digitizing job",
	Long: `Quote a digitizing job from the design dimensions or a stitch estimate.

A --file holding a JSON array of quote requests is evaluated as one batch.

Examples:
  embroidery-pricing quote --tenant acme --width 4 --height 3
  embroidery-pricing quote --tenant acme --stitches 12000 --rush
  embroidery-pricing quote --tenant acme --file designs.json`,
	RunE: runQuote,
}

func init() {
	for _, c := range []*cobra.Command{shipCmd, ratesCmd, priceCmd, quoteCmd} {
		c.Flags().StringVarP(&calcTenant, "tenant", "t", "", "tenant id [REQUIRED]")
		c.Flags().StringVar(&calcFile, "file", "", "JSON request file (- for stdin)")
		c.MarkFlagRequired("tenant")
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{shipCmd, ratesCmd, priceCmd} {
		c.Flags().StringVarP(&calcProfile, "profile", "p", "", "profile id (default: tenant default)")
	}
	for _, c := range []*cobra.Command{shipCmd, priceCmd} {
		c.Flags().StringArrayVarP(&calcItems, "item", "i", nil, "order line as variant:quantity[:extra]")
	}

	quoteCmd.Flags().StringVar(&quoteWidth, "width", "", "design width in inches")
	quoteCmd.Flags().StringVar(&quoteHeight, "height", "", "design height in inches")
	quoteCmd.Flags().IntVar(&quoteColors, "colors", 0, "thread color count")
	quoteCmd.Flags().Int64Var(&quoteStitches, "stitches", 0, "estimated stitch count (overrides dimensions)")
	quoteCmd.Flags().BoolVar(&quoteRush, "rush", false, "rush turnaround")
}

// recordable is a calculation that can be saved to history
type recordable struct {
	kind      string
	profileID string
	total     money.Money
	request   interface{}
	result    interface{}
}

func (r recordable) toRecord() (*storage.Record, error) {
	return storage.NewRecord(r.kind, calcTenant, r.profileID, r.total, r.request, r.result)
}

func runShip(cmd *cobra.Command, args []string) error {
	req := engine.ShippingRequest{ProfileID: calcProfile}
	if err := readRequest(cmd, &req); err != nil {
		return err
	}
	for _, raw := range calcItems {
		variant, qty, extra, err := parseItem(raw)
		if err != nil {
			return err
		}
		item := types.ShippingItem{VariantID: variant, Quantity: qty}
		switch extra {
		case "":
		case "heavy":
			item.IsHeavy = true
		default:
			return fmt.Errorf("item %q: suffix must be heavy", raw)
		}
		req.Items = append(req.Items, item)
	}
	req.TenantID = calcTenant

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Engine.CalculateShipping(cmd.Context(), req)
	if err != nil {
		return err
	}
	recordResult(cmd, a, recordable{metrics.KindShipping, result.ProfileID, result.Total, req, result})
	return render(cmd.OutOrStdout(), result, func(w io.Writer) { renderShipping(w, result) })
}

func runRates(cmd *cobra.Command, args []string) error {
	if calcFile == "" {
		return fmt.Errorf("--file is required: rates need a shipment")
	}
	var shipment types.Shipment
	if err := readRequest(cmd, &shipment); err != nil {
		return err
	}
	req := engine.RatesRequest{TenantID: calcTenant, ProfileID: calcProfile, Shipment: shipment}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Engine.ResolveShippingRates(cmd.Context(), req)
	if err != nil {
		return err
	}
	if len(result.Rates) > 0 {
		recordResult(cmd, a, recordable{metrics.KindRates, result.ProfileID, result.Cheapest(), req, result.Rates})
	}
	return render(cmd.OutOrStdout(), result.Rates, func(w io.Writer) { renderRates(w, result.Rates) })
}

func runPrice(cmd *cobra.Command, args []string) error {
	req := engine.PriceRequest{ProfileID: calcProfile}
	if err := readRequest(cmd, &req); err != nil {
		return err
	}
	for _, raw := range calcItems {
		variant, qty, extra, err := parseItem(raw)
		if err != nil {
			return err
		}
		item := engine.PriceItem{VariantID: variant, Quantity: qty}
		if extra != "" {
			stitches, err := strconv.Atoi(extra)
			if err != nil {
				return fmt.Errorf("item %q: stitch count must be an integer", raw)
			}
			item.StitchCount = &stitches
		}
		req.Items = append(req.Items, item)
	}
	req.TenantID = calcTenant

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Engine.PriceOrder(cmd.Context(), req)
	if err != nil {
		return err
	}
	recordResult(cmd, a, recordable{metrics.KindPricing, result.ProfileID, result.Total, req, result})
	return render(cmd.OutOrStdout(), result, func(w io.Writer) { renderPrice(w, result) })
}

func runQuote(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if calcFile != "" {
		var batch []types.QuoteRequest
		if err := readRequest(cmd, &batch); err != nil {
			return err
		}
		reqs := make([]engine.QuoteRequest, len(batch))
		for i, q := range batch {
			reqs[i] = engine.QuoteRequest{TenantID: calcTenant, QuoteRequest: q}
		}
		quotes, err := a.Engine.QuoteBatch(cmd.Context(), reqs)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), quotes, func(w io.Writer) { renderQuotes(w, quotes) })
	}

	req := engine.QuoteRequest{TenantID: calcTenant}
	req.IsRush = quoteRush
	if quoteWidth != "" {
		d, err := decimal.NewFromString(quoteWidth)
		if err != nil {
			return fmt.Errorf("--width: %w", err)
		}
		req.Width = &d
	}
	if quoteHeight != "" {
		d, err := decimal.NewFromString(quoteHeight)
		if err != nil {
			return fmt.Errorf("--height: %w", err)
		}
		req.Height = &d
	}
	if cmd.Flags().Changed("colors") {
		req.ColorCount = &quoteColors
	}
	if cmd.Flags().Changed("stitches") {
		req.EstimatedStitchCount = &quoteStitches
	}

	result, err := a.Engine.DigitizingQuote(cmd.Context(), req)
	if err != nil {
		return err
	}
	recordResult(cmd, a, recordable{metrics.KindDigitizing, "", result.TotalPrice, req, result})
	return render(cmd.OutOrStdout(), result, func(w io.Writer) { renderQuote(w, result) })
}

// readRequest decodes --file into dst. Without --file dst is left as is.
func readRequest(cmd *cobra.Command, dst interface{}) error {
	if calcFile == "" {
		return nil
	}
	var r io.Reader
	if calcFile == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(calcFile)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", calcFile, err)
	}
	return nil
}

// parseItem splits variant:quantity[:extra]
func parseItem(raw string) (variant string, qty int, extra string, err error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 || parts[0] == "" {
		return "", 0, "", fmt.Errorf("item %q: want variant:quantity", raw)
	}
	qty, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, "", fmt.Errorf("item %q: quantity must be an integer", raw)
	}
	if len(parts) == 3 {
		extra = parts[2]
	}
	return parts[0], qty, extra, nil
}
