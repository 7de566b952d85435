package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Zachdehooge/wms-animator/internal/capability"
	"github.com/Zachdehooge/wms-animator/internal/config"
	"github.com/Zachdehooge/wms-animator/internal/convert"
	"github.com/Zachdehooge/wms-animator/internal/fetcher"
	"github.com/Zachdehooge/wms-animator/internal/generator"
	"github.com/Zachdehooge/wms-animator/internal/logging"
	"github.com/Zachdehooge/wms-animator/internal/metrics"
	"github.com/Zachdehooge/wms-animator/internal/server"
	"github.com/Zachdehooge/wms-animator/internal/wms"
)

var (
	apiKey     string
	endpoint   string
	configFile string
	outputFile string
	socketURL  string
	verbose    bool
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#add8e6")).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wms-animator",
		Short: "Animate Weather WMS layers on a map",
		Long: `wms-animator loads the Weather WMS capabilities, lets you pick up to two
layers and animates them through the forecast time steps.

Without a subcommand it writes the static map page, which connects to a
running "wms-animator serve".`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := generateMapHTML(cmd); err != nil {
				return fmt.Errorf("failed to generate map page: %w", err)
			}
			return nil
		},
	}

	// Flags
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Weather API key (default from WXMAP_API_KEY or spire-api-key)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "WMS endpoint (default <api host>/ows/wms/)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "wms.html", "Output HTML file path")
	rootCmd.Flags().StringVar(&socketURL, "server", generator.DefaultSocketURL, "Session websocket the page connects to")

	// Additional commands
	addServeCmd(rootCmd)
	addLayersCmd(rootCmd)
	addPointCmd(rootCmd)
	addFilesCmd(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration with flag overrides and configures logging.
func setup(cmd *cobra.Command) (config.Config, zerolog.Logger, error) {
	overrides := map[string]any{}
	if cmd.Flags().Changed("api-key") {
		overrides["api.key"] = apiKey
	}
	if cmd.Flags().Changed("endpoint") {
		overrides["wms.endpoint"] = endpoint
	}
	if cmd.Flags().Changed("bind") {
		bind, _ := cmd.Flags().GetString("bind")
		overrides["http.bind"] = bind
	}

	cfg, err := config.Load(config.Options{File: configFile, Overrides: overrides})
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	env := cfg.Log.Env
	if verbose {
		env = "development"
	}
	return cfg, logging.Setup(env), nil
}

func newClient(cfg config.Config, apiKey string, logger zerolog.Logger) *fetcher.Client {
	client := fetcher.NewClient(cfg.API.Host, apiKey, cfg.Fetch.Timeout, logger)
	client.WMS = cfg.WMS.Endpoint
	client.MaxElapsed = cfg.Fetch.MaxElapsed
	return client
}

func bundlesOf(cfg config.Config) []capability.Bundle {
	out := make([]capability.Bundle, 0, len(cfg.WMS.Bundles))
	for _, b := range cfg.WMS.Bundles {
		out = append(out, capability.Bundle(b))
	}
	return out
}

// newSource builds the capability pipeline for an API key.
func newSource(cfg config.Config, logger zerolog.Logger) server.Source {
	return func(key string) (*capability.Loader, wms.Builder) {
		client := newClient(cfg, key, logger)
		loader := &capability.Loader{
			Index:   capability.NewIndex(len(cfg.WMS.Bundles), key),
			Fetcher: client,
			Product: cfg.WMS.Product,
			Bundles: bundlesOf(cfg),
			Logger:  logger,
		}
		return loader, wms.Builder{Endpoint: client.WMSEndpoint(), KeyParam: fetcher.APIKeyParam, APIKey: key}
	}
}

// generateMapHTML writes the static map page
func generateMapHTML(cmd *cobra.Command) error {
	if verbose {
		cmd.Println(fmt.Sprintf("Generating HTML to %s...", outputFile))
	}
	if err := generator.GenerateMapHTML(generator.NewPage(socketURL, nil), outputFile); err != nil {
		return err
	}
	cmd.Println(fmt.Sprintf("Map page saved to %s", outputFile))
	return nil
}

// addServeCmd adds the 'serve' subcommand running the session server
func addServeCmd(rootCmd *cobra.Command) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the map page and its session websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			srv := server.New(server.Options{
				Source:   newSource(cfg, logger),
				APIKey:   cfg.API.Key,
				Metrics:  metrics.New(reg),
				Gatherer: reg,
				Logger:   logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				if err := srv.Load(ctx); err != nil {
					logger.Warn().Err(err).Msg("capabilities incomplete, post new credentials to /api/credentials to retry")
				}
			}()

			cmd.Println(fmt.Sprintf("Open at http://localhost%s/", displayAddr(cfg.HTTP.Bind)))
			return srv.Run(ctx, cfg.HTTP.Bind)
		},
	}
	serveCmd.Flags().String("bind", ":8080", "HTTP listen address")
	rootCmd.AddCommand(serveCmd)
}

func displayAddr(bind string) string {
	if strings.HasPrefix(bind, ":") {
		return bind
	}
	if i := strings.LastIndex(bind, ":"); i >= 0 {
		return bind[i:]
	}
	return bind
}

// addLayersCmd adds a 'layers' subcommand listing the latest options without serving
func addLayersCmd(rootCmd *cobra.Command) {
	layersCmd := &cobra.Command{
		Use:   "layers",
		Short: "List the selectable layers of the latest forecast",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			loader, _ := newSource(cfg, logger)(cfg.API.Key)
			if err := loader.Load(cmd.Context()); err != nil {
				if errors.Is(err, fetcher.ErrUnauthorized) {
					return errors.New("API request failed for the Weather WMS API, a valid API key is required")
				}
				return err
			}

			ix := loader.Index
			for _, b := range loader.Bundles {
				if f, ok := ix.Latest(b); ok {
					cmd.Println(fmt.Sprintf("%s: forecast %s %sZ, %d steps", b, f.Date, f.Hour, f.Steps()))
				}
			}

			titles := ix.Titles()
			if len(titles) == 0 {
				cmd.Println("No animated layers available.")
				return nil
			}
			rows := make([][]string, 0, len(titles))
			for _, title := range titles {
				l, _ := ix.Lookup(title)
				styles := make([]string, 0, len(l.Styles))
				for _, st := range l.Styles {
					styles = append(styles, st.Name)
				}
				rows = append(rows, []string{l.Title, string(l.Bundle), strings.Join(styles, ", "), strconv.Itoa(len(l.Times))})
			}
			cmd.Println(render([]string{"Layer", "Bundle", "Styles", "Steps"}, rows))
			return nil
		},
	}
	rootCmd.AddCommand(layersCmd)
}

// addPointCmd adds a 'point' subcommand printing a point forecast
func addPointCmd(rootCmd *cobra.Command) {
	var (
		lat, lon   float64
		bundles    []string
		timeBundle string
		interval   string
	)
	pointCmd := &cobra.Command{
		Use:   "point",
		Short: "Print the last complete point forecast for a location",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			client := newClient(cfg, cfg.API.Key, logger)
			forecasts, err := client.FetchLastCompletePoint(cmd.Context(), fetcher.PointRequest{
				Lat:               lat,
				Lon:               lon,
				Bundles:           bundles,
				TimeBundle:        timeBundle,
				ValidTimeInterval: interval,
			})
			if err != nil {
				return fmt.Errorf("failed to fetch point forecast: %w", err)
			}
			if len(forecasts) == 0 {
				cmd.Println("No forecast data returned.")
				return nil
			}
			cmd.Println(render(pointTable(forecasts)))
			return nil
		},
	}
	pointCmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	pointCmd.Flags().Float64Var(&lon, "lon", 0, "Longitude")
	pointCmd.Flags().StringSliceVar(&bundles, "bundles", []string{"basic"}, "Data bundles")
	pointCmd.Flags().StringVar(&timeBundle, "time-bundle", fetcher.MediumRangeStdFreq, "Time bundle")
	pointCmd.Flags().StringVar(&interval, "interval", "", "Valid time interval (ISO 8601 interval)")
	_ = pointCmd.MarkFlagRequired("lat")
	_ = pointCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(pointCmd)
}

// pointTable lays out point forecasts, adding wind speed and direction when
// the wind components are present.
func pointTable(forecasts []fetcher.PointForecast) ([]string, [][]string) {
	var variables []string
	seen := map[string]bool{}
	for _, f := range forecasts {
		for name := range f.Values {
			if !seen[name] {
				seen[name] = true
				variables = append(variables, name)
			}
		}
	}
	sort.Strings(variables)

	_, _, hasWind := convert.Wind(forecasts[0].Values)
	headers := append([]string{"issuance_time", "valid_time"}, variables...)
	if hasWind {
		headers = append(headers, "wind_speed", "wind_direction")
	}

	rows := make([][]string, 0, len(forecasts))
	for _, f := range forecasts {
		row := []string{f.Times.IssuanceTime, f.Times.ValidTime}
		for _, name := range variables {
			v, ok := f.Values[name]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'f', 2, 64))
		}
		if hasWind {
			speed, dir, ok := convert.Wind(f.Values)
			if ok {
				row = append(row, strconv.FormatFloat(speed, 'f', 2, 64), strconv.FormatFloat(dir, 'f', 0, 64))
			} else {
				row = append(row, "", "")
			}
		}
		rows = append(rows, row)
	}
	return headers, rows
}

// addFilesCmd adds a 'files' subcommand downloading a complete issuance
func addFilesCmd(rootCmd *cobra.Command) {
	var (
		bundle     string
		timeBundle string
		dir        string
	)
	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "Download the latest complete forecast issuance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
			client := newClient(cfg, cfg.API.Key, logger)
			paths, err := client.DownloadCompleteIssuance(cmd.Context(), bundle, timeBundle, dir)
			if errors.Is(err, fetcher.ErrIncompleteIssuance) {
				cmd.Println(err.Error())
				return nil
			}
			if err != nil {
				return err
			}
			cmd.Println(fmt.Sprintf("%d files available in %s", len(paths), dir))
			return nil
		},
	}
	filesCmd.Flags().StringVar(&bundle, "bundle", "basic", "Data bundle")
	filesCmd.Flags().StringVar(&timeBundle, "time-bundle", fetcher.MediumRangeStdFreq, "Time bundle")
	filesCmd.Flags().StringVarP(&dir, "dir", "d", "forecast", "Download directory")
	rootCmd.AddCommand(filesCmd)
}

func render(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}
