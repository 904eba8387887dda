// Command rastercalc evaluates a map-algebra expression over one or more
// raster datasets and writes the result to a new raster.
package main

import (
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/airbusgeo/godal"
	"github.com/spf13/cobra"

	"github.com/rastercalc/rastercalc"
	"github.com/rastercalc/rastercalc/internal/remotestore"
)

var (
	calc            string
	outfile         string
	outformat       string
	creationOptions []string
	extent          string
	nodata          bool
	overwrite       bool
	reproject       bool
	resampling      string
	tempdir         string
	notile          bool
	quiet           bool
)

func init() {
	rootCommand.Flags().StringVar(&calc, "calc", "", "expression to evaluate, e.g. \"a+b\"")
	rootCommand.Flags().StringVar(&outfile, "outfile", "", "output raster path")
	rootCommand.Flags().StringVar(&outformat, "of", "GTiff", "output raster driver")
	rootCommand.Flags().StringArrayVar(&creationOptions, "co", nil, "output creation option, KEY=VALUE (repeatable)")
	rootCommand.Flags().StringVar(&extent, "extent", "MINOF", "extent reconciliation policy: MINOF, MAXOF, INTERSECT, UNION")
	rootCommand.Flags().BoolVar(&nodata, "nodata", false, "mask NoData pixels during evaluation")
	rootCommand.Flags().BoolVar(&overwrite, "overwrite", false, "allow overwriting an existing outfile")
	rootCommand.Flags().BoolVar(&reproject, "reproject", false, "allow automatic reprojection of mismatched SRS")
	rootCommand.Flags().StringVar(&resampling, "resampling", "NEAREST", "resampling algorithm: NEAREST, BILINEAR, CUBIC, CUBICSPLINE, LANCZOS, AVERAGE, MODE")
	rootCommand.Flags().StringVar(&tempdir, "tempdir", "", "scratch directory, or a gs:// bucket URI")
	rootCommand.Flags().BoolVar(&notile, "notile", false, "read/write whole arrays instead of streaming tile by tile")
	rootCommand.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the final status line on stderr")
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCommand = &cobra.Command{
	Use:   "rastercalc [flags] -- --NAME=path.tif [--NAME2=path2.tif ...]",
	Short: "evaluate a map-algebra expression over one or more rasters",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if calc == "" {
			return fmt.Errorf("--calc is required")
		}
		if outfile == "" {
			return fmt.Errorf("--outfile is required")
		}

		env := rastercalc.NewEnvironment()
		if err := env.SetExtent(extent); err != nil {
			return err
		}
		if err := env.SetResampling(resampling); err != nil {
			return err
		}
		env.SetNodata(nodata)
		env.SetOverwrite(overwrite)
		env.SetReproject(reproject)
		env.SetTiled(!notile)
		env.SetProgress(!quiet)
		if err := env.SetTempdir(tempdir); err != nil {
			return err
		}

		if env.IsRemoteTempdir() {
			ctx := cmd.Context()
			client, err := storage.NewClient(ctx)
			if err != nil {
				return fmt.Errorf("storage.newclient: %w", err)
			}
			if err := remotestore.RegisterGCSHandler(ctx, client); err != nil {
				return fmt.Errorf("register gs:// handler: %w", err)
			}
		}

		bindings := map[string]*rastercalc.Raster{}
		for _, arg := range args {
			name, path, ok := parseBinding(arg)
			if !ok {
				return fmt.Errorf("unrecognized argument %q, expected --NAME=path", arg)
			}
			r, err := rastercalc.Open(path)
			if err != nil {
				return err
			}
			bindings[name] = r
		}
		if len(bindings) == 0 {
			return fmt.Errorf("no raster variables bound; pass at least one --NAME=path")
		}

		env.SetEnableNumexpr(true)
		result, err := rastercalc.EvaluateExpression(env, calc, bindings)
		if err != nil {
			return err
		}
		defer result.Close()

		driver := godal.DriverName(outformat)
		if err := result.Save(env, outfile, driver, creationOptions); err != nil {
			return err
		}
		if !quiet {
			fmt.Fprintf(os.Stderr, "wrote %s\n", outfile)
		}
		return nil
	},
}

// parseBinding splits a "--NAME=path" argument into its variable name and
// path, mirroring the original CLI's locals()[var] = Dataset(path)
// variable-binding convention.
func parseBinding(arg string) (name, path string, ok bool) {
	if !strings.HasPrefix(arg, "--") {
		return "", "", false
	}
	arg = arg[2:]
	eq := strings.Index(arg, "=")
	if eq == -1 {
		return "", "", false
	}
	return arg[:eq], arg[eq+1:], true
}
