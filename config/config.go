package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/tarkah/tickrs/helpers"
	"github.com/tarkah/tickrs/models"
	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultUpdateInterval   = time.Second
	MinUpdateInterval       = time.Second
	DefaultMaxBackoff       = time.Minute
	DefaultNotFoundInterval = 5 * time.Minute
	DefaultFetchTimeout     = 10 * time.Second
)

type CryptoProvider string

const (
	CryptoProviderYahoo   CryptoProvider = "yahoo"
	CryptoProviderBinance CryptoProvider = "binance"
)

type KagiOptionsConfig struct {
	ReversalType  string  `yaml:"reversal_type"`
	ReversalValue float64 `yaml:"reversal_value"`
	PriceType     string  `yaml:"price_type"`
}

type KagiConfig struct {
	KagiOptionsConfig `yaml:",inline"`
	ByTimeFrame       map[string]KagiOptionsConfig `yaml:"by_time_frame"`
}

type PortfolioItemConfig struct {
	Quantity     float64 `yaml:"quantity"`
	AveragePrice float64 `yaml:"average_price"`
}

type SymbolConfig struct {
	Symbol string `yaml:"symbol"`
	Class  string `yaml:"class"`
}

// fileConfig mirrors config.yml. Symbols may be given as plain strings or as
// {symbol, class} entries.
type fileConfig struct {
	Symbols          []yaml.Node                    `yaml:"symbols"`
	TimeFrame        string                         `yaml:"time_frame"`
	ChartType        string                         `yaml:"chart_type"`
	UpdateInterval   string                         `yaml:"update_interval"`
	MaxBackoff       string                         `yaml:"max_backoff"`
	NotFoundInterval string                         `yaml:"not_found_interval"`
	FetchTimeout     string                         `yaml:"fetch_timeout"`
	EnablePrePost    *bool                          `yaml:"enable_pre_post"`
	ShowVolumes      *bool                          `yaml:"show_volumes"`
	ShowXLabels      *bool                          `yaml:"show_x_labels"`
	Summary          *bool                          `yaml:"summary"`
	HideHelp         *bool                          `yaml:"hide_help"`
	HidePrevClose    *bool                          `yaml:"hide_prev_close"`
	HideToggle       *bool                          `yaml:"hide_toggle"`
	TruncPre         *bool                          `yaml:"trunc_pre"`
	CryptoProvider   string                         `yaml:"crypto_provider"`
	KagiOptions      *KagiConfig                    `yaml:"kagi_options"`
	Portfolio        map[string]PortfolioItemConfig `yaml:"portfolio"`
	LogFile          string                         `yaml:"log_file"`
	LogLevel         string                         `yaml:"log_level"`
}

type Config struct {
	Symbols          []models.Ticker
	TimeFrame        models.TimeFrame
	ChartType        models.ChartType
	UpdateInterval   time.Duration
	MaxBackoff       time.Duration
	NotFoundInterval time.Duration
	FetchTimeout     time.Duration
	EnablePrePost    bool
	ShowVolumes      bool
	ShowXLabels      bool
	Summary          bool
	HideHelp         bool
	HidePrevClose    bool
	HideToggle       bool
	TruncPre         bool
	CryptoProvider   CryptoProvider
	Kagi             *KagiConfig
	Portfolio        map[string]models.PortfolioItem
	LogFile          string
	LogLevel         string
	BinanceAPIKey    string
	BinanceAPISecret string
}

func Default() *Config {
	return &Config{
		TimeFrame:        models.TimeFrameDay1,
		ChartType:        models.ChartTypeLine,
		UpdateInterval:   DefaultUpdateInterval,
		MaxBackoff:       DefaultMaxBackoff,
		NotFoundInterval: DefaultNotFoundInterval,
		FetchTimeout:     DefaultFetchTimeout,
		ShowXLabels:      true,
		CryptoProvider:   CryptoProviderYahoo,
		LogFile:          "tickrs.log",
		LogLevel:         "info",
	}
}

// DefaultPath is ~/.config/tickrs/config.yml
func DefaultPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tickrs", "config.yml")
}

// Load reads the YAML file at path on top of the defaults and then applies environment
// overrides. An empty path means the default location, which may be absent.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("expand config path: %w", err)
		}
		data, err := os.ReadFile(expanded)
		switch {
		case err == nil:
			if err := cfg.applyYAML(data); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", expanded, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyYAML(data []byte) error {
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	for _, node := range file.Symbols {
		switch node.Kind {
		case yaml.ScalarNode:
			cfg.Symbols = append(cfg.Symbols, models.ParseTicker(node.Value))
		case yaml.MappingNode:
			var entry SymbolConfig
			if err := node.Decode(&entry); err != nil {
				return err
			}
			ticker, err := tickerFromEntry(entry)
			if err != nil {
				return err
			}
			cfg.Symbols = append(cfg.Symbols, ticker)
		default:
			return fmt.Errorf("line %d: symbol must be a string or a mapping", node.Line)
		}
	}

	if err := cfg.SetTimeFrame(file.TimeFrame); err != nil {
		return err
	}
	if err := cfg.SetChartType(file.ChartType); err != nil {
		return err
	}
	for _, d := range []struct {
		raw    string
		target *time.Duration
	}{
		{file.UpdateInterval, &cfg.UpdateInterval},
		{file.MaxBackoff, &cfg.MaxBackoff},
		{file.NotFoundInterval, &cfg.NotFoundInterval},
		{file.FetchTimeout, &cfg.FetchTimeout},
	} {
		if err := setDuration(d.raw, d.target); err != nil {
			return err
		}
	}
	for _, flag := range []struct {
		value  *bool
		target *bool
	}{
		{file.EnablePrePost, &cfg.EnablePrePost},
		{file.ShowVolumes, &cfg.ShowVolumes},
		{file.ShowXLabels, &cfg.ShowXLabels},
		{file.Summary, &cfg.Summary},
		{file.HideHelp, &cfg.HideHelp},
		{file.HidePrevClose, &cfg.HidePrevClose},
		{file.HideToggle, &cfg.HideToggle},
		{file.TruncPre, &cfg.TruncPre},
	} {
		if flag.value != nil {
			*flag.target = *flag.value
		}
	}
	for symbol, item := range file.Portfolio {
		if cfg.Portfolio == nil {
			cfg.Portfolio = map[string]models.PortfolioItem{}
		}
		cfg.Portfolio[models.ParseTicker(symbol).Symbol] = models.PortfolioItem{Quantity: item.Quantity, AveragePrice: item.AveragePrice}
	}
	if file.CryptoProvider != "" {
		cfg.CryptoProvider = CryptoProvider(file.CryptoProvider)
	}
	if file.KagiOptions != nil {
		cfg.Kagi = file.KagiOptions
	}
	if file.LogFile != "" {
		cfg.LogFile = file.LogFile
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	return nil
}

func (cfg *Config) applyEnv() error {
	if v := os.Getenv("symbols"); v != "" {
		cfg.SetSymbols(v)
	}
	if err := cfg.SetTimeFrame(os.Getenv("timeFrame")); err != nil {
		return err
	}
	if err := cfg.SetChartType(os.Getenv("chartType")); err != nil {
		return err
	}
	if err := setDuration(os.Getenv("updateInterval"), &cfg.UpdateInterval); err != nil {
		return err
	}
	for _, flag := range []struct {
		key    string
		target *bool
	}{
		{"enablePrePost", &cfg.EnablePrePost},
		{"summary", &cfg.Summary},
		{"hideHelp", &cfg.HideHelp},
		{"hidePrevClose", &cfg.HidePrevClose},
		{"hideToggle", &cfg.HideToggle},
		{"truncPre", &cfg.TruncPre},
	} {
		v := os.Getenv(flag.key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", flag.key, err)
		}
		*flag.target = b
	}
	if v := os.Getenv("cryptoProvider"); v != "" {
		cfg.CryptoProvider = CryptoProvider(v)
	}
	if v := os.Getenv("logFile"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("logLevel"); v != "" {
		cfg.LogLevel = v
	}
	cfg.BinanceAPIKey = os.Getenv("binanceAPIKey")
	cfg.BinanceAPISecret = os.Getenv("binanceAPISecret")
	return nil
}

// SetSymbols replaces the watchlist with a comma separated list of symbols.
func (cfg *Config) SetSymbols(list string) {
	cfg.Symbols = nil
	for _, symbol := range strings.Split(list, ",") {
		if strings.TrimSpace(symbol) == "" {
			continue
		}
		cfg.Symbols = append(cfg.Symbols, models.ParseTicker(symbol))
	}
}

func (cfg *Config) SetTimeFrame(s string) error {
	if s == "" {
		return nil
	}
	timeFrame, err := models.ParseTimeFrame(strings.ToUpper(s))
	if err != nil {
		return err
	}
	cfg.TimeFrame = timeFrame
	return nil
}

func (cfg *Config) SetChartType(s string) error {
	if s == "" {
		return nil
	}
	chartType, err := models.ParseChartType(strings.ToLower(s))
	if err != nil {
		return err
	}
	cfg.ChartType = chartType
	return nil
}

func (cfg *Config) SetUpdateInterval(s string) error {
	return setDuration(s, &cfg.UpdateInterval)
}

// Validate checks enum values and Kagi options. An update interval below the minimum is
// raised to the minimum rather than rejected.
func (cfg *Config) Validate() error {
	if cfg.UpdateInterval < MinUpdateInterval {
		helpers.Logger.Warnln(fmt.Sprintf("update interval %s below minimum, using %s", cfg.UpdateInterval, MinUpdateInterval))
		cfg.UpdateInterval = MinUpdateInterval
	}
	if cfg.MaxBackoff < cfg.UpdateInterval {
		cfg.MaxBackoff = cfg.UpdateInterval
	}
	if cfg.NotFoundInterval < cfg.UpdateInterval {
		cfg.NotFoundInterval = cfg.UpdateInterval
	}
	if cfg.FetchTimeout <= 0 {
		return &models.ConfigurationError{Field: "fetch_timeout", Reason: "must be positive"}
	}
	switch cfg.CryptoProvider {
	case CryptoProviderYahoo, CryptoProviderBinance:
	default:
		return &models.ConfigurationError{Field: "crypto_provider", Reason: fmt.Sprintf("unknown provider %q", cfg.CryptoProvider)}
	}
	for _, timeFrame := range models.TimeFrames {
		if _, err := cfg.KagiOptionsFor(timeFrame); err != nil {
			return err
		}
	}
	for symbol, item := range cfg.Portfolio {
		if item.Quantity < 0 || item.AveragePrice < 0 {
			return &models.ConfigurationError{Field: "portfolio." + symbol, Reason: "quantity and average_price must not be negative"}
		}
	}
	return nil
}

// KagiOptionsFor resolves the Kagi options for a timeframe: per timeframe override, then
// global options, then built-in defaults. Unset fields fall back to the defaults.
func (cfg *Config) KagiOptionsFor(timeFrame models.TimeFrame) (models.KagiOptions, error) {
	options := models.DefaultKagiOptions(timeFrame)
	if cfg.Kagi == nil {
		return options, nil
	}
	source := cfg.Kagi.KagiOptionsConfig
	if override, ok := cfg.Kagi.ByTimeFrame[string(timeFrame)]; ok {
		source = override
	}
	if source.ReversalType != "" {
		options.ReversalKind = models.ReversalKind(source.ReversalType)
	}
	if source.ReversalValue != 0 {
		options.ReversalValue = source.ReversalValue
	}
	if source.PriceType != "" {
		options.PriceType = models.PriceType(source.PriceType)
	}
	if err := options.Validate(); err != nil {
		return models.DefaultKagiOptions(timeFrame), err
	}
	return options, nil
}

func tickerFromEntry(entry SymbolConfig) (models.Ticker, error) {
	switch models.InstrumentClass(entry.Class) {
	case "":
		return models.ParseTicker(entry.Symbol), nil
	case models.InstrumentClassEquity, models.InstrumentClassCrypto:
		return models.NewTicker(entry.Symbol, models.InstrumentClass(entry.Class)), nil
	}
	return models.Ticker{}, fmt.Errorf("symbol %s: unknown class %q", entry.Symbol, entry.Class)
}

func setDuration(raw string, target *time.Duration) error {
	if raw == "" {
		return nil
	}
	d, err := str2duration.ParseDuration(raw)
	if err != nil {
		// bare numbers are seconds
		seconds, convErr := strconv.ParseFloat(raw, 64)
		if convErr != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		d = time.Duration(seconds * float64(time.Second))
	}
	*target = d
	return nil
}
