package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/FrenchBattlesMap/viewer/internal/config"
	"github.com/FrenchBattlesMap/viewer/internal/dispatcher"
	"github.com/FrenchBattlesMap/viewer/internal/filter"
	"github.com/FrenchBattlesMap/viewer/internal/logging"
	"github.com/FrenchBattlesMap/viewer/internal/session"
	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

// rangeFlags are the year range options shared by render and enrich.
type rangeFlags struct {
	cmd        *cobra.Command
	start, end int
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	f.cmd = cmd
	cmd.Flags().IntVar(&f.start, "start", 0, "first year of the range (default slider.min)")
	cmd.Flags().IntVar(&f.end, "end", 0, "last year of the range (default slider.max)")
}

// resolve fills unset bounds from the slider configuration.
func (f *rangeFlags) resolve() core.YearRange {
	s := config.GetSliderConfig()
	start, end := s.Min, s.Max
	if f.cmd.Flags().Changed("start") {
		start = f.start
	}
	if f.cmd.Flags().Changed("end") {
		end = f.end
	}
	return core.NewYearRange(start, end)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Explore French historical battles on a map and a timeline",
		Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.configDir, "config", ".", "directory holding "+config.FileName)
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logLevel from the config file")

	root.AddCommand(
		newRenderCmd(a),
		newEnrichCmd(a),
		newStatsCmd(a),
		newHealthCmd(a),
		newSessionCmd(a),
	)
	return root
}

func newRenderCmd(a *app) *cobra.Command {
	var (
		rf       rangeFlags
		category string
		outDir   string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Fetch a year range and write the marker layer and the timeline chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if outDir != "" {
				config.Set("output.dir", outDir)
			}
			v, err := a.newViewer(cmd.Context())
			if err != nil {
				return err
			}
			if err := v.categories.Select(category); err != nil {
				return err
			}
			if category != filter.All {
				if _, err := v.ctrl.ApplyCategory(category); err != nil {
					return err
				}
			}

			want := rf.resolve()
			r := v.slider.Commit(float64(want.Start), float64(want.End))
			v.observer.RangeDisplayed(v.slider.Display())
			if err := v.ctrl.RequestRange(cmd.Context(), r.Start, r.End); err != nil {
				return err
			}
			st := v.ctrl.State()
			v.observer.Rendered(st.Last)
			printSummary(cmd.OutOrStdout(), st.Range, st.Last)
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&category, "category", filter.All, "battle category to show")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default output.dir)")
	return cmd
}

func newEnrichCmd(a *app) *cobra.Command {
	var rf rangeFlags
	cmd := &cobra.Command{
		Use:   "enrich <battle-id>",
		Short: "Ask the service to enrich one battle, then refresh the range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid battle id %q: %w", args[0], err)
			}
			v, err := a.newViewer(cmd.Context())
			if err != nil {
				return err
			}

			r := rf.resolve()
			v.slider.Commit(float64(r.Start), float64(r.End))
			if err := v.ctrl.Enrich(cmd.Context(), id); err != nil {
				return err
			}
			st := v.ctrl.State()
			v.observer.Rendered(st.Last)
			printSummary(cmd.OutOrStdout(), st.Range, st.Last)
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the collection statistics of the battles service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.client.Statistics(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Total battles: %d\n", stats.TotalBattles)
			if stats.TimeSpan.Earliest != nil && stats.TimeSpan.Latest != nil {
				fmt.Fprintf(w, "Time span: %d - %d\n", *stats.TimeSpan.Earliest, *stats.TimeSpan.Latest)
			}
			printDistribution(w, "Types", stats.TypesDistribution)
			printDistribution(w, "Centuries", stats.CenturyDistribution)
			return nil
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the battles service answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.Healthcheck(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is up\n", a.client.BaseURL())
			return nil
		},
	}
}

func newSessionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Run an interactive viewer session",
		Long: `Run an interactive viewer session. Commands are read from stdin:

  range <start> <end>   commit the year range and fetch
  drag <start> <end>    move the slider display only
  category <name>       select a category
  enrich <id>           enrich one battle
  theme                 toggle light/dark
  density               show or hide the histogram panel
  quit                  end the session

When the renderer bridge is connected, its UI events drive the same
handlers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			v, err := a.newViewer(ctx)
			if err != nil {
				return err
			}

			d, err := dispatcher.New(logging.NewDispatcherLogger(a.zlog))
			if err != nil {
				return fmt.Errorf("failed to create dispatcher: %w", err)
			}
			defer d.Close()
			session.NewManager(ctx, v.sessionDeps()).RegisterHandlers(d)

			if v.bridge != nil {
				v.bridge.OnEvent(func(command string, args []string) {
					if _, err := d.Dispatch(dispatcher.NewEvent(command, args...)); err != nil {
						a.logger.Warn("Renderer event failed", "command", command, "error", err)
					}
				})
			}

			// the page opens on the whole slider range
			b := v.slider.Bounds()
			if _, err := d.Dispatch(dispatcher.NewEvent(session.CmdRangeChange, strconv.Itoa(b.Start), strconv.Itoa(b.End))); err != nil {
				return err
			}

			return session.Run(cmd.InOrStdin(), cmd.OutOrStdout(), d)
		},
	}
}

func printSummary(w io.Writer, r core.YearRange, st core.RenderStats) {
	fmt.Fprintf(w, "Range %s, category %s: %d visible, %d on map, %d skipped, %d periods\n",
		r, st.Category, st.Visible, st.Markers, st.Skipped, st.Buckets)
}

func printDistribution(w io.Writer, title string, dist map[string]int) {
	if len(dist) == 0 {
		return
	}
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-20s %d\n", k, dist[k])
	}
}
