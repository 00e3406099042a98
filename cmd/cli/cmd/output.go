// Package cmd - text and JSON rendering of calculation results
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"embroidery-pricing/adapters/storage"
	"embroidery-pricing/core/types"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// render writes v as indented JSON, or through text when the format is text
func render(w io.Writer, v interface{}, text func(w io.Writer)) error {
	if outputFormat == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func renderShipping(w io.Writer, r types.ShippingResult) {
	fmt.Fprintf(w, "Profile:\t%s (%s)\n", orNone(r.ProfileID), r.ProfileType)
	if b := r.Breakdown; b != nil {
		if r.ProfileType == types.ProfileTypeQuantityBased {
			fmt.Fprintf(w, "Heavy items:\t%d\t%s\n", b.HeavyCount, b.HeavyTotal)
			fmt.Fprintf(w, "Light items:\t%d\t%s\n", b.LightCount, b.LightTotal)
		}
		fmt.Fprintf(w, "Subtotal:\t\t%s\n", b.Subtotal)
		if b.Markup != nil {
			fmt.Fprintf(w, "Adjustment:\t%s\t%s\n", b.Markup.Kind, b.Markup.Amount)
		}
	}
	fmt.Fprintf(w, "Total:\t\t%s\n", r.Total)
}

func renderRates(w io.Writer, rates []types.AdjustedRate) {
	if len(rates) == 0 {
		fmt.Fprintln(w, "No rates returned.")
		return
	}
	fmt.Fprintln(w, "CARRIER\tSERVICE\tCARRIER RATE\tFEE\tRATE")
	for _, r := range rates {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Carrier, r.Service, r.OriginalRate, r.ExtraFee, r.Rate)
	}
}

func renderPrice(w io.Writer, r types.PriceResult) {
	fmt.Fprintf(w, "Profile:\t%s\n", orNone(r.ProfileID))
	if b := r.Breakdown; b != nil {
		fmt.Fprintln(w, "VARIANT\tQTY\tBASE\tMODS\tSTITCH\tGIFT\tDISCOUNT\tLINE TOTAL")
		for _, l := range b.Lines {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				l.VariantID, l.Quantity, l.BasePrice, l.ModificationPrice,
				l.StitchPrice, l.GiftNotePrice, l.Discount, l.LineTotal)
		}
		fmt.Fprintf(w, "Subtotal:\t%s\n", b.Subtotal)
		fmt.Fprintf(w, "Discount:\t%s\n", b.TotalDiscount)
	}
	fmt.Fprintf(w, "Total:\t%s\n", r.Total)
}

func renderQuote(w io.Writer, q types.QuoteResult) {
	fmt.Fprintf(w, "Stitches:\t%d\n", q.EstimatedStitchCount)
	fmt.Fprintf(w, "Base price:\t%s\n", q.BasePrice)
	fmt.Fprintf(w, "Rush fee:\t%s\n", q.RushFee)
	fmt.Fprintf(w, "Complexity fee:\t%s\n", q.ComplexityFee)
	fmt.Fprintf(w, "Total:\t%s\n", q.TotalPrice)
	fmt.Fprintf(w, "Turnaround:\t%s\n", q.EstimatedTurnaround)
	if q.Notes != nil {
		fmt.Fprintf(w, "Notes:\t%s\n", *q.Notes)
	}
}

func renderQuotes(w io.Writer, quotes []types.QuoteResult) {
	fmt.Fprintln(w, "#\tSTITCHES\tBASE\tRUSH\tCOMPLEXITY\tTOTAL\tTURNAROUND")
	for i, q := range quotes {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1, q.EstimatedStitchCount, q.BasePrice, q.RushFee, q.ComplexityFee, q.TotalPrice, q.EstimatedTurnaround)
	}
}

func renderRecords(w io.Writer, records []*storage.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No calculations recorded.")
		return
	}
	fmt.Fprintln(w, "ID\tKIND\tTENANT\tPROFILE\tTOTAL\tCREATED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Kind, r.TenantID, orNone(r.ProfileID), r.Total, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
