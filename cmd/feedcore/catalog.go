package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"feedcore/internal/blob"
	"feedcore/internal/catalog"
	"feedcore/internal/core"
	"feedcore/internal/refdata"
)

type catalogFlags struct {
	species, region, version, basis string
}

func (f *catalogFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.species, "species", "", "Species (default poultry)")
	fs.StringVar(&f.region, "region", "", "Region (default global)")
	fs.StringVar(&f.version, "version", "", "Version (default v1)")
	fs.StringVar(&f.basis, "basis", "", "Amino acid basis (default sid)")
}

func (f *catalogFlags) selector() catalog.Selector {
	return catalog.Selector{Species: f.species, Region: f.region, Version: f.version, Basis: f.basis}.Normalized()
}

func newCatalogCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect ingredient catalogs and manage stored snapshots",
	}
	cmd.AddCommand(newCatalogShowCmd(c), newCatalogImportCmd(c), newCatalogListCmd(c))
	return cmd
}

func newCatalogShowCmd(c *cli) *cobra.Command {
	var f catalogFlags
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the catalog the configured source serves for a selector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			cat, err := a.svc.Catalogs().Load(cmd.Context(), f.selector())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cat)
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func newCatalogImportCmd(c *cli) *cobra.Command {
	var f catalogFlags
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy a catalog from the reference store into the snapshot store",
		Long: `Import loads the catalog for the selector from the reference store (merging
global invariants) and upserts it into the sqlite or postgres snapshot store
named by catalog.driver.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := core.OpenSnapshotStore(ctx, c.cfg.Catalog)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			store, err := blob.Open(ctx, c.cfg.BlobConfig())
			if err != nil {
				return fmt.Errorf("open reference store: %w", err)
			}
			cat, err := catalog.NewBlobSource(refdata.New(store)).Load(ctx, f.selector())
			if err != nil {
				return err
			}
			if err := st.Import(ctx, cat); err != nil {
				return err
			}
			c.logger.Info("catalog imported",
				zap.String("selector", cat.Selector.String()),
				zap.String("source", cat.Source.File),
				zap.Int("ingredients", cat.Len()),
			)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%d ingredients)\n", cat.Selector, cat.Len())
			return err
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func newCatalogListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List selectors held by the snapshot store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := core.OpenSnapshotStore(cmd.Context(), c.cfg.Catalog)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			sels, err := st.Selectors(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range sels {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), s); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
