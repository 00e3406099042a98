// Package cmd - profile management: validate, import and list imports
// Importing is the only way profile files reach the database.
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"embroidery-pricing/adapters/profiles"
	"embroidery-pricing/db/ingestion"
	"embroidery-pricing/internal/app"
	"embroidery-pricing/internal/config"
	"embroidery-pricing/internal/logging"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Pricing profile management",
	Long: `Pricing profile management commands.

Profiles are authored as HCL files and either read directly (profiles.source
= "hcl") or imported into the database (profiles.source = "sql").`,
}

var profilesValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Parse profile files and report what they define",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfilesValidate,
}

var profilesImportCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Import profile files into the database",
	Long: `Import every profile and variant from an HCL file or directory into the
configured database in a single transaction.

Identical content is imported once; re-running the import is a no-op.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProfilesImport,
}

var profilesBatchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List profile imports, newest first",
	RunE:  runProfilesBatches,
}

var importTimeout time.Duration

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.AddCommand(profilesValidateCmd)
	profilesCmd.AddCommand(profilesImportCmd)
	profilesCmd.AddCommand(profilesBatchesCmd)

	profilesImportCmd.Flags().DurationVar(&importTimeout, "timeout", 5*time.Minute, "timeout for the import")
}

// profilePath picks the positional path over the configured one
func profilePath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return config.Get().Profiles.Path
}

func runProfilesValidate(cmd *cobra.Command, args []string) error {
	path := profilePath(args)
	catalog, err := profiles.NewLoader().LoadPath(path)
	if err != nil {
		return err
	}

	summary := catalog.Summary()
	return render(cmd.OutOrStdout(), summary, func(w io.Writer) {
		fmt.Fprintf(w, "%s is valid\n", path)
		fmt.Fprintf(w, "Tenants:\t%d\n", len(summary.Tenants))
		fmt.Fprintf(w, "Shipping profiles:\t%d\n", summary.ShippingProfiles)
		fmt.Fprintf(w, "Price profiles:\t%d\n", summary.PriceProfiles)
		fmt.Fprintf(w, "Digitizing profiles:\t%d\n", summary.DigitizingProfiles)
		fmt.Fprintf(w, "Variants:\t%d\n", summary.Variants)
	})
}

func runProfilesImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), importTimeout)
	defer cancel()

	store, err := app.OpenDatabase(ctx, config.Get().Database, logging.Named("db"))
	if err != nil {
		return err
	}
	defer store.DB().Close()

	path := profilePath(args)
	batch, err := ingestion.NewPipeline(store, logging.Logger).ImportPath(ctx, path)
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), batch, func(w io.Writer) {
		if batch.Skipped {
			fmt.Fprintf(w, "%s unchanged since batch %s\n", path, batch.ID)
			return
		}
		fmt.Fprintf(w, "Imported %s as batch %s\n", path, batch.ID)
		fmt.Fprintf(w, "Shipping profiles:\t%d\n", batch.ShippingProfiles)
		fmt.Fprintf(w, "Price profiles:\t%d\n", batch.PriceProfiles)
		fmt.Fprintf(w, "Digitizing profiles:\t%d\n", batch.DigitizingProfiles)
		fmt.Fprintf(w, "Variants:\t%d\n", batch.Variants)
	})
}

func runProfilesBatches(cmd *cobra.Command, args []string) error {
	store, err := app.OpenDatabase(cmd.Context(), config.Get().Database, logging.Named("db"))
	if err != nil {
		return err
	}
	defer store.DB().Close()

	batches, err := ingestion.NewPipeline(store, logging.Logger).Batches(cmd.Context())
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), batches, func(w io.Writer) {
		if len(batches) == 0 {
			fmt.Fprintln(w, "No imports yet.")
			return
		}
		fmt.Fprintln(w, "BATCH\tSOURCE\tHASH\tSHIPPING\tPRICE\tDIGITIZING\tVARIANTS\tIMPORTED")
		for _, b := range batches {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
				b.ID, b.Source, b.ContentHash, b.ShippingProfiles, b.PriceProfiles,
				b.DigitizingProfiles, b.Variants, b.ImportedAt.Format(time.RFC3339))
		}
	})
}
