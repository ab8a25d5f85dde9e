package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/tarkah/tickrs/config"
	"github.com/tarkah/tickrs/helpers"
	"github.com/tarkah/tickrs/interfaces"
	"github.com/tarkah/tickrs/providers"
	"github.com/tarkah/tickrs/providers/binance"
	"github.com/tarkah/tickrs/providers/yahoo"
	"github.com/tarkah/tickrs/services"
	"github.com/tarkah/tickrs/ui"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "tickrs",
		Usage: "realtime ticker data in your terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to config.yml"},
			&cli.StringFlag{Name: "symbols", Aliases: []string{"s"}, Usage: "comma separated list of ticker symbols"},
			&cli.StringFlag{Name: "time-frame", Aliases: []string{"t"}, Usage: "1D, 1W, 1M, 3M, 6M, 1Y or 5Y"},
			&cli.StringFlag{Name: "chart-type", Usage: "line, candle or kagi"},
			&cli.StringFlag{Name: "update-interval", Aliases: []string{"i"}, Usage: "how often to poll, e.g. 1s"},
			&cli.BoolFlag{Name: "enable-pre-post", Aliases: []string{"p"}, Usage: "include pre and post market data on 1D"},
			&cli.BoolFlag{Name: "show-volumes", Usage: "show the volume pane"},
			&cli.BoolFlag{Name: "show-x-labels", Aliases: []string{"x"}, Usage: "show time labels under the chart"},
			&cli.BoolFlag{Name: "summary", Usage: "start in summary mode"},
			&cli.BoolFlag{Name: "hide-help", Usage: "hide the help hint"},
			&cli.BoolFlag{Name: "hide-prev-close", Usage: "hide the previous close line on 1D"},
			&cli.BoolFlag{Name: "hide-toggle", Usage: "hide the toggle block"},
			&cli.BoolFlag{Name: "trunc-pre", Usage: "only chart the last 30 minutes of pre market"},
			&cli.StringFlag{Name: "crypto-provider", Usage: "yahoo or binance"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Errorln(err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if err := applyFlags(c, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := helpers.ConfigureLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		return err
	}
	defer helpers.Logger.Close()
	helpers.Logger.Infoln(fmt.Sprintf("tickrs started with %d symbols", len(cfg.Symbols)))

	httpClient := helpers.NewHTTPClient(cfg.FetchTimeout)
	var crypto interfaces.BarFetcher
	if cfg.CryptoProvider == config.CryptoProviderBinance {
		crypto = binance.NewBinanceService(cfg.BinanceAPIKey, cfg.BinanceAPISecret, httpClient)
	}
	fetcher := providers.NewProviderService(yahoo.NewYahooService(httpClient), crypto)

	store := services.NewBarStoreService()
	calendar := services.NewCalendarService()
	acquisition := services.NewAcquisitionService(fetcher, store, calendar, services.AcquisitionConfig{
		UpdateInterval:   cfg.UpdateInterval,
		MaxBackoff:       cfg.MaxBackoff,
		NotFoundInterval: cfg.NotFoundInterval,
		FetchTimeout:     cfg.FetchTimeout,
		IncludePrePost:   cfg.EnablePrePost,
	})
	acquisition.Start(context.Background())
	defer acquisition.Stop()

	housekeeping := services.NewHousekeepingService(store, calendar, acquisition)
	if err := housekeeping.RegisterAll(); err != nil {
		return err
	}
	housekeeping.Start()
	defer housekeeping.Stop()

	axisService := services.NewAxisService(calendar)
	axisService.TruncatePreMarket(cfg.TruncPre)
	multiStockService := services.NewMultiStockService(services.StockOptions{
		TimeFrame:   cfg.TimeFrame,
		ChartType:   cfg.ChartType,
		ShowVolumes: cfg.ShowVolumes,
		KagiOptions: cfg.KagiOptionsFor,
		Portfolio:   cfg.Portfolio,
	}, store, acquisition, axisService, services.NewChartService())
	for _, ticker := range cfg.Symbols {
		if err := multiStockService.Open(ticker); err != nil {
			helpers.Logger.Errorln(err)
		}
	}

	return ui.NewDashboard(multiStockService, ui.DashboardOptions{
		ShowXLabels:   cfg.ShowXLabels,
		ShowVolumes:   cfg.ShowVolumes,
		Summary:       cfg.Summary,
		HideHelp:      cfg.HideHelp,
		HidePrevClose: cfg.HidePrevClose,
		HideToggle:    cfg.HideToggle,
	}).Run()
}

func applyFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("symbols") {
		cfg.SetSymbols(c.String("symbols"))
	}
	if c.IsSet("time-frame") {
		if err := cfg.SetTimeFrame(c.String("time-frame")); err != nil {
			return err
		}
	}
	if c.IsSet("chart-type") {
		if err := cfg.SetChartType(c.String("chart-type")); err != nil {
			return err
		}
	}
	if c.IsSet("update-interval") {
		if err := cfg.SetUpdateInterval(c.String("update-interval")); err != nil {
			return err
		}
	}
	if c.IsSet("enable-pre-post") {
		cfg.EnablePrePost = c.Bool("enable-pre-post")
	}
	if c.IsSet("show-volumes") {
		cfg.ShowVolumes = c.Bool("show-volumes")
	}
	for name, target := range map[string]*bool{
		"show-x-labels":   &cfg.ShowXLabels,
		"summary":         &cfg.Summary,
		"hide-help":       &cfg.HideHelp,
		"hide-prev-close": &cfg.HidePrevClose,
		"hide-toggle":     &cfg.HideToggle,
		"trunc-pre":       &cfg.TruncPre,
	} {
		if c.IsSet(name) {
			*target = c.Bool(name)
		}
	}
	if c.IsSet("crypto-provider") {
		cfg.CryptoProvider = config.CryptoProvider(c.String("crypto-provider"))
	}
	return nil
}
