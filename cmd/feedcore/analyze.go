package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"feedcore/internal/core"
	"feedcore/pkg/domain"
)

// selectorFlags binds the requirement selectors shared by several commands.
type selectorFlags struct {
	species, typ, breed, phase, region, version, production string
}

func (f *selectorFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.species, "species", "", "Species (default poultry)")
	fs.StringVar(&f.typ, "type", "", "Animal type (default broiler)")
	fs.StringVar(&f.breed, "breed", "", "Breed (default generic)")
	fs.StringVar(&f.phase, "phase", "", "Growth phase (default starter)")
	fs.StringVar(&f.region, "region", "", "Catalog region (default global)")
	fs.StringVar(&f.version, "version", "", "Reference data version (default v1)")
	fs.StringVar(&f.production, "production", "", "Production line, inferred when empty")
}

// apply copies the flags the user set onto req, leaving request-file values
// for the rest.
func (f *selectorFlags) apply(fs *pflag.FlagSet, req *core.Request) {
	set := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	set("species", &req.Species, f.species)
	set("type", &req.Type, f.typ)
	set("breed", &req.Breed, f.breed)
	set("phase", &req.Phase, f.phase)
	set("region", &req.Region, f.region)
	set("version", &req.Version, f.version)
	set("production", &req.Production, f.production)
}

func (f *selectorFlags) selectors() domain.Selectors {
	return domain.Selectors{
		Species:    f.species,
		Type:       f.typ,
		Breed:      f.breed,
		Phase:      f.phase,
		Region:     f.region,
		Version:    f.version,
		Production: f.production,
	}
}

func newAnalyzeCmd(c *cli) *cobra.Command {
	var (
		sel         selectorFlags
		formulaFile string
		requestFile string
		labFile     string
		basis       string
		normalize   bool
		dmMode      string
		cpMode      string
		trace       bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a formula and print the result as JSON",
		Long: `Analyze reads formula text (one "<ingredient> <inclusion>" line each) from
--file, from the formula_text of --request, or from stdin, and prints the
analysis response. Gate responses (NEEDS_DM_SCALE_MODE, NEEDS_CP_APPLY_MODE)
are printed like any other; rerun with the requested mode flag.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req core.Request
			if requestFile != "" {
				r, err := readRequest(requestFile)
				if err != nil {
					return err
				}
				req = r
			}
			sel.apply(cmd.Flags(), &req)
			if cmd.Flags().Changed("basis") {
				req.Basis = basis
			}
			if cmd.Flags().Changed("normalize") {
				req.Normalize = normalize
			}
			if cmd.Flags().Changed("dm-scale-mode") {
				req.DMScaleMode = dmMode
			}
			if cmd.Flags().Changed("cp-apply-mode") {
				req.CPApplyMode = cpMode
			}
			if labFile != "" {
				lab, err := readLab(labFile)
				if err != nil {
					return err
				}
				req.Lab = lab
			}
			if formulaFile != "" || req.Formula == "" {
				text, err := readFormula(cmd.InOrStdin(), formulaFile)
				if err != nil {
					return err
				}
				req.Formula = text
			}

			var extra []core.Option
			if trace {
				extra = append(extra, core.WithTracer(core.NewJSONTracer(cmd.ErrOrStderr())))
			}
			a, err := c.openApp(cmd.Context(), extra...)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			resp, err := a.svc.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			c.logger.Info("analysis finished",
				zap.String("status", resp.Status),
				zap.String("overall", string(resp.Overall)),
				zap.Int("unknown", len(resp.Unknown)),
			)
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
	fs := cmd.Flags()
	sel.register(fs)
	fs.StringVarP(&formulaFile, "file", "f", "", `Formula text file ("-" for stdin)`)
	fs.StringVar(&requestFile, "request", "", "Request document (YAML or JSON); flags override its fields")
	fs.StringVar(&labFile, "lab", "", "Lab overrides document (YAML or JSON)")
	fs.StringVar(&basis, "basis", "", "Catalog amino acid basis (default sid)")
	fs.BoolVar(&normalize, "normalize", false, "Scale inclusions to sum to 100")
	fs.StringVar(&dmMode, "dm-scale-mode", "", "DM override scope: ME_ONLY or ALL_NUTRIENTS")
	fs.StringVar(&cpMode, "cp-apply-mode", "", "CP override policy: RECOMPUTE_SID_FROM_TOTAL, TOTAL_ONLY, SCALE_SID_DIRECT or NONE")
	fs.BoolVar(&trace, "trace", false, "Write stage spans as JSON lines to stderr")
	return cmd
}

func readFormula(stdin io.Reader, path string) (string, error) {
	if path == "" || path == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read formula from stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read formula: %w", err)
	}
	return string(raw), nil
}
