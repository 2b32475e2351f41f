package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"feedcore/internal/blob"
	"feedcore/internal/refdata"
	"feedcore/internal/requirements"
)

func newRequirementsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requirements",
		Short: "Inspect nutrient requirement profiles",
	}
	cmd.AddCommand(newRequirementsResolveCmd(c))
	return cmd
}

func newRequirementsResolveCmd(c *cli) *cobra.Command {
	var sel selectorFlags
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the requirement profile the selectors resolve to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := blob.Open(cmd.Context(), c.cfg.BlobConfig())
			if err != nil {
				return fmt.Errorf("open reference store: %w", err)
			}
			res := requirements.NewResolver(refdata.New(store), requirements.WithLogger(c.logger.Named("requirements")))
			prof, err := res.Resolve(cmd.Context(), sel.selectors())
			var rerr *requirements.ResolutionError
			if errors.As(err, &rerr) {
				if werr := writeJSON(cmd.OutOrStdout(), rerr); werr != nil {
					return werr
				}
				return fmt.Errorf("requirements not resolved: %s", rerr.Kind)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), prof)
		},
	}
	sel.register(cmd.Flags())
	return cmd
}
