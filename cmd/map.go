package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/blockassign/internal/config"
	"github.com/sells-group/blockassign/internal/dataset"
	"github.com/sells-group/blockassign/internal/db"
	"github.com/sells-group/blockassign/internal/geometry"
	"github.com/sells-group/blockassign/internal/match"
	"github.com/sells-group/blockassign/internal/output"
	"github.com/sells-group/blockassign/internal/shapes"
	"github.com/sells-group/blockassign/internal/tiger"
)

// mapOptions is everything one map run needs besides the config.
type mapOptions struct {
	SourcesPath    string
	SourcesTable   string
	BlocksPath     string
	Output         string
	Format         string
	Dataset        string
	Workers        int
	DerivePrefix   int // < 0 means use the descriptor's value
	IDProperty     string
	RegionProperty string
}

var mapCmd = &cobra.Command{
	Use:   "map [sources.geojson] <blocks.zip>",
	Short: "Assign every block to the source polygon it overlaps most",
	Long: `Reads source polygons (districts, precincts) from a GeoJSON file, or from a
PostGIS table with --sources-table, and census blocks from a TIGER/Line
.zip archive, then writes one GEOID,DISTRICT row per block.`,
	Example: `  blockassign map district-shapes.geojson tl_2020_04_tabblock20.zip
  blockassign map --sources-table geo.districts tl_2020_04_tabblock20.zip --format postgres`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := mapOptionsFromFlags(cmd, args, cfg.Input.SourceIDField, cfg.Input.SourceRegionField)
		if err != nil {
			return err
		}
		return runMapCommand(cmd, opts)
	},
}

func init() {
	addMapFlags(mapCmd)
	mapCmd.Flags().String("id-property", "", "GeoJSON property holding the source id (default: from config)")
	mapCmd.Flags().String("region-property", "", "GeoJSON property holding the source region (default: from config)")
	mapCmd.Flags().String("sources-table", "", "read sources from this PostGIS table instead of GeoJSON")
	rootCmd.AddCommand(mapCmd)
}

// addMapFlags registers the flags shared by map and its presets.
func addMapFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "output path (default: <sources>_blocks.csv)")
	cmd.Flags().String("format", "", "output format: csv, xlsx, postgres, sqlite (default: from config)")
	cmd.Flags().String("dataset", "", "dataset descriptor YAML (default: from config)")
	cmd.Flags().Int("workers", 0, "concurrent source scorers (default: from config)")
	cmd.Flags().Int("derive-prefix", -1, "assign unmatched blocks whose id prefix of this length names a matched source")
}

func mapOptionsFromFlags(cmd *cobra.Command, args []string, idProp, regionProp string) (mapOptions, error) {
	var opts mapOptions
	opts.SourcesTable, _ = cmd.Flags().GetString("sources-table")

	switch {
	case opts.SourcesTable != "" && len(args) == 1:
		opts.BlocksPath = args[0]
	case opts.SourcesTable == "" && len(args) == 2:
		opts.SourcesPath, opts.BlocksPath = args[0], args[1]
	case opts.SourcesTable != "":
		return opts, &InputError{Path: args[0], Msg: "with --sources-table only the blocks file is given"}
	default:
		return opts, &InputError{Path: args[0], Msg: "both a sources .geojson and a blocks .zip are required"}
	}

	opts.Output, _ = cmd.Flags().GetString("output")
	opts.Format, _ = cmd.Flags().GetString("format")
	opts.Dataset, _ = cmd.Flags().GetString("dataset")
	opts.Workers, _ = cmd.Flags().GetInt("workers")
	opts.DerivePrefix, _ = cmd.Flags().GetInt("derive-prefix")
	opts.IDProperty, opts.RegionProperty = idProp, regionProp
	if v, _ := cmd.Flags().GetString("id-property"); v != "" {
		opts.IDProperty = v
	}
	if v, _ := cmd.Flags().GetString("region-property"); v != "" {
		opts.RegionProperty = v
	}
	return opts, nil
}

func runMapCommand(cmd *cobra.Command, opts mapOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, sinkName, err := runMap(ctx, cfg, opts)
	if err != nil {
		return err
	}

	st := res.Stats
	fmt.Printf("Wrote %d block assignments (%s): %d split, %d bbox-only, %d derived, %d fallback, %d unresolved\n",
		st.Total, sinkName, st.Split, st.BBoxOnly, st.Derived, st.Phase2, st.Unresolved)
	return nil
}

// runMap loads both sets, matches them and writes the result.
func runMap(ctx context.Context, c *config.Config, opts mapOptions) (*match.Result, string, error) {
	if err := validateInputs(opts.SourcesPath, opts.BlocksPath); err != nil {
		return nil, "", err
	}

	if opts.Format == "" {
		opts.Format = c.Output.Format
	}
	if opts.Workers <= 0 {
		opts.Workers = c.Match.Workers
	}
	if opts.Dataset == "" {
		opts.Dataset = c.Dataset.Descriptor
	}
	run := *c
	run.Output.Format = opts.Format
	run.Match.Workers = opts.Workers
	if err := run.Validate("map"); err != nil {
		return nil, "", err
	}

	log := zap.L().With(zap.String("command", "map"))

	desc := dataset.Default()
	if opts.Dataset != "" {
		d, err := dataset.Load(opts.Dataset)
		if err != nil {
			return nil, "", err
		}
		desc = d
	}
	derivePrefix := desc.DerivePrefix
	if opts.DerivePrefix >= 0 {
		derivePrefix = opts.DerivePrefix
	}

	pools := &lazyPool{url: c.Postgres.DatabaseURL}
	defer pools.Close()

	engine := geometry.NewGEOS()

	sources, err := loadSources(ctx, engine, pools, opts)
	if err != nil {
		return nil, "", err
	}
	log.Info("sources loaded", zap.Int("sources", sources.Len()))

	targets, err := tiger.OpenBlocks(opts.BlocksPath, c.Input.TempDir, engine, c.Input.TargetIDField)
	if err != nil {
		return nil, "", err
	}

	index, err := engine.NewIndex(targets.IDs(), targets.Shapes(), c.Match.IndexNodeCapacity)
	if err != nil {
		return nil, "", eris.Wrap(err, "map: build index")
	}
	defer index.Close()

	m := match.New(engine, match.Options{
		Workers:       opts.Workers,
		DerivePrefix:  derivePrefix,
		ProgressEvery: c.Match.ProgressEvery,
		Fallback:      desc.FallbackFor(sources, engine),
	})
	res, err := m.Run(ctx, sources, targets, index)
	if err != nil {
		return nil, "", err
	}

	sink, err := newSink(ctx, &run, pools, opts)
	if err != nil {
		return nil, "", err
	}
	if !output.Save(ctx, sink, res) {
		return nil, "", eris.Errorf("map: %s sink failed", sink.Name())
	}
	return res, sink.Name(), nil
}

func loadSources(ctx context.Context, engine *geometry.GEOS, pools *lazyPool, opts mapOptions) (*shapes.Set, error) {
	if opts.SourcesTable == "" {
		return shapes.LoadGeoJSON(opts.SourcesPath, engine, shapes.GeoJSONOptions{
			IDProperty:     opts.IDProperty,
			RegionProperty: opts.RegionProperty,
		})
	}
	pool, err := pools.Get(ctx)
	if err != nil {
		return nil, err
	}
	return shapes.ReadPostGIS(ctx, pool, engine, shapes.PostGISQuery{
		Table:        opts.SourcesTable,
		IDColumn:     opts.IDProperty,
		RegionColumn: opts.RegionProperty,
	})
}

// newSink builds the configured output sink.
func newSink(ctx context.Context, c *config.Config, pools *lazyPool, opts mapOptions) (output.Sink, error) {
	path := opts.Output
	switch c.Output.Format {
	case config.FormatCSV:
		if path == "" {
			path = defaultOutputPath(opts.SourcesPath, opts.SourcesTable, config.FormatCSV)
		}
		return &output.CSVSink{Path: path}, nil
	case config.FormatXLSX:
		if path == "" {
			path = defaultOutputPath(opts.SourcesPath, opts.SourcesTable, config.FormatXLSX)
		}
		return &output.XLSXSink{Path: path}, nil
	case config.FormatPostgres:
		pool, err := pools.Get(ctx)
		if err != nil {
			return nil, err
		}
		table := c.Output.Table
		if opts.Output != "" {
			table = opts.Output
		}
		return &output.PostgresSink{Pool: pool, Table: table, Truncate: c.Output.Truncate}, nil
	case config.FormatSQLite:
		if path == "" {
			path = c.Output.SQLitePath
		}
		return &output.SQLiteSink{Path: path}, nil
	default:
		return nil, eris.Errorf("map: unknown output format %q", c.Output.Format)
	}
}

// lazyPool opens the PostGIS pool on first use and shares it between the
// source reader and the sink.
type lazyPool struct {
	url  string
	pool *pgxpool.Pool
}

func (l *lazyPool) Get(ctx context.Context) (*pgxpool.Pool, error) {
	if l.pool != nil {
		return l.pool, nil
	}
	pool, err := db.Open(ctx, l.url)
	if err != nil {
		return nil, eris.Wrap(err, "map: open postgres")
	}
	l.pool = pool
	return pool, nil
}

func (l *lazyPool) Close() {
	if l.pool != nil {
		l.pool.Close()
	}
}
