package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "soundleak",
		Short:        "Find sound leaks between sectors of Doom-engine maps",
		Long:         `soundleak checks whether a noise made at one point of a level can be heard at another, crossing at most one sound-blocking line.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}

			level := cfg.LogLevel()
			if verbose {
				level = log.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			ctx = withConfig(ctx, cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newFindCmd())
	root.AddCommand(newDomainCmd())

	return root
}

type configKey struct{}

func withConfig(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFromContext(ctx context.Context) Config {
	if cfg, ok := ctx.Value(configKey{}).(Config); ok {
		return cfg
	}
	return DefaultConfig()
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP leak finder service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return NewServer(cfg, loggerFromContext(cmd.Context())).ListenAndServe()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func newFindCmd() *cobra.Command {
	var (
		mapPath     string
		from, to    string
		radius      float64
		sectors     []int
		geojsonPath string
		dotPath     string
		svgPath     string
	)

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Search for a sound leak between two points",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			cfg := configFromContext(ctx)

			start, err := parsePoint(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := parsePoint(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			if !cmd.Flags().Changed("radius") {
				radius = cfg.Search.Radius
			}

			lm, err := loadMap(logger, mapPath)
			if err != nil {
				return err
			}

			outcome, err := lm.RunLeakQuery(LeakQuery{Start: start, End: end, Radius: radius, Sectors: sectors}, cfg.SearchOptions(logger)...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			lf := outcome.Finder
			if lf == nil {
				logger.Info("destination out of earshot",
					"source", outcome.Source.Index,
					"destination", outcome.Destination.Index,
					"elapsed", outcome.Elapsed)
				fmt.Fprintln(out, "no leak")
				if geojsonPath != "" || dotPath != "" || svgPath != "" {
					logger.Warn("no search graph was built, skipping exports")
				}
				return nil
			}

			logger.Info("search finished",
				"found", outcome.Found,
				"source", outcome.Source.Index,
				"destination", outcome.Destination.Index,
				"nodes", len(lf.Nodes()),
				"blocking", lf.NumBlockingNodes(),
				"attempts", lf.Attempts(),
				"explored", lf.Explored(),
				"elapsed", outcome.Elapsed)

			if outcome.Found {
				fmt.Fprintln(out, "leak found")
				for _, l := range lf.PathLinedefs() {
					fmt.Fprintf(out, "  linedef %d (%s)\n", l.Index, describeLine(l))
				}
			} else {
				fmt.Fprintln(out, "no leak")
			}

			if geojsonPath != "" {
				if err := lf.SaveGeoJSON(geojsonPath); err != nil {
					return err
				}
			}
			if dotPath != "" {
				if err := os.WriteFile(dotPath, []byte(lf.ToDOT()), 0644); err != nil {
					return fmt.Errorf("failed to write dot: %w", err)
				}
			}
			if svgPath != "" {
				svg, err := lf.RenderSVG(ctx)
				if err != nil {
					return err
				}
				if err := os.WriteFile(svgPath, svg, 0644); err != nil {
					return fmt.Errorf("failed to write svg: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&mapPath, "map", "m", "", "map document (.json, .yaml)")
	cmd.Flags().StringVar(&from, "from", "", "start point as x,y")
	cmd.Flags().StringVar(&to, "to", "", "end point as x,y")
	cmd.Flags().Float64Var(&radius, "radius", 0, "only consider sectors within this distance of the start point")
	cmd.Flags().IntSliceVar(&sectors, "sectors", nil, "explicit sector indices to search instead of the sound domain")
	cmd.Flags().StringVar(&geojsonPath, "geojson", "", "write the node graph as GeoJSON")
	cmd.Flags().StringVar(&dotPath, "dot", "", "write the node graph as Graphviz DOT")
	cmd.Flags().StringVar(&svgPath, "svg", "", "render the node graph to SVG")
	cmd.MarkFlagRequired("map")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}

func newDomainCmd() *cobra.Command {
	var mapPath, at string

	cmd := &cobra.Command{
		Use:   "domain",
		Short: "List the sectors a noise at a point can reach",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			point, err := parsePoint(at)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}

			lm, err := loadMap(logger, mapPath)
			if err != nil {
				return err
			}

			sector, err := lm.Index.SectorAt(point)
			if err != nil {
				return err
			}

			domain := SoundDomain(sector, nil)
			logger.Debug("sound domain", "sector", sector.Index, "size", len(domain))

			indices := domain.Indices()
			parts := make([]string, len(indices))
			for i, idx := range indices {
				parts[i] = strconv.Itoa(idx)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " "))
			return nil
		},
	}

	cmd.Flags().StringVarP(&mapPath, "map", "m", "", "map document (.json, .yaml)")
	cmd.Flags().StringVar(&at, "at", "", "point as x,y")
	cmd.MarkFlagRequired("map")
	cmd.MarkFlagRequired("at")

	return cmd
}

func loadMap(logger *log.Logger, path string) (*LoadedMap, error) {
	p := newProgress(logger)
	m, err := LoadMapFile(path)
	if err != nil {
		return nil, err
	}
	p.done("Loaded map", "file", path, "sectors", len(m.Sectors), "linedefs", len(m.Linedefs))
	return NewLoadedMap(path, m), nil
}

// parsePoint parses "x,y"
func parsePoint(s string) (orb.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("invalid point %q, expected x,y", s)
	}

	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid x in %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid y in %q: %w", s, err)
	}
	return orb.Point{x, y}, nil
}

func describeLine(l *Linedef) string {
	if l.BlocksSound() {
		return "blocks sound"
	}
	return "open"
}
