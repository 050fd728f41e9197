// Package cli implements the wired command.
package cli

import (
	"fmt"
	"io"
	"os/signal"
	"runtime"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/junioryono/wired"
	"github.com/junioryono/wired/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Version information, set at build time
	Version   = "dev"
	GitCommit = "unknown"
)

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	var (
		configPath string
		noColor    bool
	)

	rootCmd := &cobra.Command{
		Use:   "wired",
		Short: "Serve and inspect a wired application",
		Long: color.CyanString(`wired - module-based dependency injection for HTTP services

Runs the sample application on the configured router and prints its
routes and module graph.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to wired.yaml")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	load := func() (*config.Config, error) { return config.Load(configPath) }

	rootCmd.AddCommand(newServeCommand(load))
	rootCmd.AddCommand(newRoutesCommand(load))
	rootCmd.AddCommand(newGraphCommand(load))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

type loader func() (*config.Config, error)

func newServeCommand(load loader) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			adapter, app, err := bootstrap(cfg)
			if err != nil {
				return err
			}

			if addr == "" {
				addr = cfg.Server.Address()
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app.Logger().Info("listening", "addr", addr, "adapter", cfg.Server.Adapter)
			return listen(ctx, adapter, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.host and server.port)")
	return cmd
}

func newRoutesCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the registered routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			_, app, err := bootstrap(cfg)
			if err != nil {
				return err
			}
			return writeRoutes(cmd.OutOrStdout(), app.Routes())
		},
	}
}

func writeRoutes(w io.Writer, routes []wired.RouteInfo) error {
	if len(routes) == 0 {
		_, err := fmt.Fprintln(w, "No routes registered.")
		return err
	}

	sorted := append([]wired.RouteInfo(nil), routes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].URL != sorted[j].URL {
			return sorted[i].URL < sorted[j].URL
		}
		return sorted[i].Method < sorted[j].Method
	})

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)

	bold.Fprintf(w, "ROUTES (%d total)\n\n", len(sorted))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tURL\tHANDLER\tMODULE\tGUARDS\tINTERCEPTORS\tPIPES\tFILTERS")
	for _, r := range sorted {
		fmt.Fprintf(tw, "%s\t%s\t%s.%s\t%s\t%d\t%d\t%d\t%d\n",
			green.Sprint(r.Method), r.URL, r.Controller, r.Handler, r.Module,
			r.Guards, r.Interceptors, r.Pipes, r.Filters)
	}
	return tw.Flush()
}

func newGraphCommand(load loader) *cobra.Command {
	var (
		dot    bool
		module string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the module import graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			_, app, err := bootstrap(cfg)
			if err != nil {
				return err
			}
			if module != "" {
				return app.WriteModule(cmd.OutOrStdout(), module)
			}
			return app.WriteGraph(cmd.OutOrStdout(), dot)
		},
	}

	cmd.Flags().BoolVar(&dot, "dot", false, "Write Graphviz DOT")
	cmd.Flags().StringVarP(&module, "module", "m", "", "Describe one module and its transitive imports")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			title := color.New(color.FgCyan, color.Bold)
			out := cmd.OutOrStdout()

			title.Fprint(out, "wired version: ")
			fmt.Fprintln(out, Version)
			title.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)
			title.Fprint(out, "Go version: ")
			fmt.Fprintln(out, runtime.Version())
		},
	}
}
