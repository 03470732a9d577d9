package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"vixfix-trading-bot/internal/ta"
	"vixfix-trading-bot/internal/types"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode                    string            `yaml:"mode" validate:"oneof=DRY_RUN LIVE"`
	Symbol                  string            `yaml:"symbol" validate:"required"`
	RiskPercent             float64           `yaml:"risk_percent" validate:"gt=0,lte=100"`
	RewardRisk              float64           `yaml:"reward_risk" validate:"gt=0"`
	StopTicks               float64           `yaml:"stop_ticks" validate:"gt=0"`
	PollSeconds             int               `yaml:"poll_seconds" validate:"gt=0"`
	ReconnectBackoffSeconds int               `yaml:"reconnect_backoff_seconds" validate:"gt=0"`
	Bars                    int               `yaml:"bars" validate:"gte=150"`
	Timeframes              []types.Timeframe `yaml:"timeframes" validate:"min=1,dive,required"`
	HigherTimeframe         types.Timeframe   `yaml:"higher_timeframe" validate:"required"`
	HigherBars              int               `yaml:"higher_bars" validate:"gt=0"`
	LogDir                  string            `yaml:"log_dir"`
	LogRetentionDays        int               `yaml:"log_retention_days" validate:"gte=0"`
	Indicators              struct {
		WVFPeriod     int     `yaml:"wvf_period" validate:"gt=0"`
		WVFMeanPeriod int     `yaml:"wvf_mean_period" validate:"gt=0"`
		WVFMargin     float64 `yaml:"wvf_margin" validate:"gte=0"`
		StochK        int     `yaml:"stoch_k" validate:"gt=0"`
		StochD        int     `yaml:"stoch_d" validate:"gt=0"`
		StochSlowing  int     `yaml:"stoch_slowing" validate:"gt=0"`
		Oversold      float64 `yaml:"oversold" validate:"gte=0,lte=100"`
		Overbought    float64 `yaml:"overbought" validate:"gte=0,lte=100"`
		TrendFast     int     `yaml:"trend_fast" validate:"gt=0"`
		TrendSlow     int     `yaml:"trend_slow" validate:"gt=0"`
	} `yaml:"indicators"`
	Venue struct {
		Provider     string  `yaml:"provider" validate:"oneof=OANDA PAPER"`
		Environment  string  `yaml:"environment"`
		BaseURL      string  `yaml:"base_url"`
		LotSize      float64 `yaml:"lot_size" validate:"gt=0"`
		PaperBalance float64 `yaml:"paper_balance" validate:"gte=0"`
		TimeoutSecs  int     `yaml:"timeout_seconds" validate:"gte=0"`
	} `yaml:"venue"`
	Journal struct {
		Path       string `yaml:"path" validate:"required"`
		RemoteName string `yaml:"remote_name"`
	} `yaml:"journal"`
	Remote struct {
		Provider string `yaml:"provider" validate:"oneof=DRIVE DIR NONE"`
		Dir      string `yaml:"dir"`
		BaseURL  string `yaml:"base_url"`
	} `yaml:"remote"`
	Notify struct {
		Provider string `yaml:"provider" validate:"oneof=TELEGRAM NONE"`
		BaseURL  string `yaml:"base_url"`
	} `yaml:"notify"`

	// Secrets, from the environment only.
	Secrets Secrets `yaml:"-"`
}

type Secrets struct {
	VenueAccountID   string
	VenueToken       string
	TelegramToken    string
	TelegramChatID   string
	DriveAccessToken string
	DriveFileID      string
}

// LoadSecrets reads credentials from the environment.
func LoadSecrets() Secrets {
	return Secrets{
		VenueAccountID:   os.Getenv("OANDA_ACCOUNT_ID"),
		VenueToken:       os.Getenv("OANDA_TOKEN"),
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		DriveAccessToken: os.Getenv("DRIVE_ACCESS_TOKEN"),
		DriveFileID:      os.Getenv("DRIVE_FILE_ID"),
	}
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

func (c *Config) ReconnectBackoff() time.Duration {
	return time.Duration(c.ReconnectBackoffSeconds) * time.Second
}

func (c *Config) VenueCredentials() types.Credentials {
	return types.Credentials{AccountID: c.Secrets.VenueAccountID, Token: c.Secrets.VenueToken}
}

// IndicatorParams returns the vix-fix and stochastic windows.
func (c *Config) IndicatorParams() ta.Params {
	return ta.Params{
		WVFPeriod:     c.Indicators.WVFPeriod,
		WVFMeanPeriod: c.Indicators.WVFMeanPeriod,
		StochK:        c.Indicators.StochK,
		StochD:        c.Indicators.StochD,
		StochSlowing:  c.Indicators.StochSlowing,
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", types.ErrConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", types.ErrConfig, err)
	}
	for _, tf := range append([]types.Timeframe{c.HigherTimeframe}, c.Timeframes...) {
		if !tf.Valid() {
			return fmt.Errorf("%w: unknown timeframe %q", types.ErrConfig, tf)
		}
	}
	for i := 1; i < len(c.Timeframes); i++ {
		if c.Timeframes[i].Duration() <= c.Timeframes[i-1].Duration() {
			return fmt.Errorf("%w: timeframes must go from finest to coarsest, got %v", types.ErrConfig, c.Timeframes)
		}
	}
	if c.HigherTimeframe.Duration() <= c.Timeframes[len(c.Timeframes)-1].Duration() {
		return fmt.Errorf("%w: higher_timeframe %s must be coarser than %s", types.ErrConfig, c.HigherTimeframe, c.Timeframes[len(c.Timeframes)-1])
	}
	if need := c.IndicatorParams().MinBars(); c.Bars < need {
		return fmt.Errorf("%w: bars %d cannot fill indicator windows of %d", types.ErrConfig, c.Bars, need)
	}
	if c.HigherBars < c.Indicators.TrendSlow {
		return fmt.Errorf("%w: higher_bars %d below trend_slow %d", types.ErrConfig, c.HigherBars, c.Indicators.TrendSlow)
	}
	if c.Indicators.TrendFast >= c.Indicators.TrendSlow {
		return fmt.Errorf("%w: trend_fast must be below trend_slow", types.ErrConfig)
	}
	if c.Indicators.Oversold >= c.Indicators.Overbought {
		return fmt.Errorf("%w: oversold must be below overbought", types.ErrConfig)
	}
	if c.Remote.Provider == "DIR" && c.Remote.Dir == "" {
		return fmt.Errorf("%w: remote.dir required for DIR provider", types.ErrConfig)
	}
	return nil
}

// ValidateSecrets fails when a selected provider has no credentials.
func (c *Config) ValidateSecrets() error {
	var missing []string
	if c.Venue.Provider == "OANDA" {
		if c.Secrets.VenueAccountID == "" {
			missing = append(missing, "OANDA_ACCOUNT_ID")
		}
		if c.Secrets.VenueToken == "" {
			missing = append(missing, "OANDA_TOKEN")
		}
	}
	if c.Notify.Provider == "TELEGRAM" {
		if c.Secrets.TelegramToken == "" {
			missing = append(missing, "TELEGRAM_TOKEN")
		}
		if c.Secrets.TelegramChatID == "" {
			missing = append(missing, "TELEGRAM_CHAT_ID")
		}
	}
	if c.Remote.Provider == "DRIVE" && c.Secrets.DriveAccessToken == "" {
		missing = append(missing, "DRIVE_ACCESS_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing credentials %s", types.ErrConfig, strings.Join(missing, ", "))
	}
	return nil
}

// Default returns the configuration the bot runs with when a key is absent
// from the file.
func Default() *Config {
	c := &Config{
		Mode:                    "DRY_RUN",
		Symbol:                  "XAU_USD",
		RiskPercent:             2,
		RewardRisk:              2,
		StopTicks:               100,
		PollSeconds:             300,
		ReconnectBackoffSeconds: 15,
		Bars:                    150,
		Timeframes:              []types.Timeframe{types.M5, types.M15},
		HigherTimeframe:         types.H1,
		HigherBars:              200,
		LogDir:                  "logs",
	}
	c.Indicators.WVFPeriod = 22
	c.Indicators.WVFMeanPeriod = 22
	c.Indicators.WVFMargin = 1
	c.Indicators.StochK = 5
	c.Indicators.StochD = 3
	c.Indicators.StochSlowing = 3
	c.Indicators.Oversold = 30
	c.Indicators.Overbought = 70
	c.Indicators.TrendFast = 50
	c.Indicators.TrendSlow = 200
	c.Venue.Provider = "PAPER"
	c.Venue.Environment = "practice"
	c.Venue.LotSize = 100
	c.Venue.PaperBalance = 10000
	c.Venue.TimeoutSecs = 30
	c.Journal.Path = "berth_memory.json"
	c.Remote.Provider = "NONE"
	c.Notify.Provider = "NONE"
	return c
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrConfig, err)
	}
	c.Mode = strings.ToUpper(c.Mode)
	c.Venue.Provider = strings.ToUpper(c.Venue.Provider)
	c.Remote.Provider = strings.ToUpper(c.Remote.Provider)
	c.Notify.Provider = strings.ToUpper(c.Notify.Provider)
	if c.Journal.RemoteName == "" {
		c.Journal.RemoteName = baseName(c.Journal.Path)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(b)
	if err != nil {
		return nil, err
	}
	c.Secrets = LoadSecrets()
	return c, nil
}

// Save writes c as YAML, used by `config init`.
func (c *Config) Save(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
