package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	bracedEnvRegex = regexp.MustCompile(`\$\{([^}]+)\}`)
	bareEnvRegex   = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// LoggingAdapterConfig configures one log destination
type LoggingAdapterConfig struct {
	Name    string                 `yaml:"name"`
	Type    string                 `yaml:"type"`
	Enabled bool                   `yaml:"enabled"`
	Options map[string]interface{} `yaml:"options"`
}

// Config represents the application configuration
type Config struct {
	Server struct {
		Port          int           `yaml:"port" default:"8080"`
		Host          string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout   time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout  time.Duration `yaml:"write_timeout" default:"30m"`
		IdleTimeout   time.Duration `yaml:"idle_timeout" default:"60s"`
		ScrapeTimeout time.Duration `yaml:"scrape_timeout" default:"30m"`
	} `yaml:"server"`

	Scraper struct {
		HeadlessMode   bool   `yaml:"headless_mode" default:"false"`
		StealthMode    bool   `yaml:"stealth_mode" default:"true"`
		UserAgent      string `yaml:"user_agent"`
		UserDataDir    string `yaml:"user_data_dir" default:"./data/browser-profile"`
		ChromeBin      string `yaml:"chrome_bin"`
		ViewportWidth  int    `yaml:"viewport_width" default:"1920"`
		ViewportHeight int    `yaml:"viewport_height" default:"1080"`

		NavigationTimeout      time.Duration `yaml:"navigation_timeout" default:"60s"`
		SettleDelay            time.Duration `yaml:"settle_delay" default:"2s"`
		ListTimeout            time.Duration `yaml:"list_timeout" default:"15s"`
		RecommendationSettle   time.Duration `yaml:"recommendation_settle" default:"3s"`
		ScrollWait             time.Duration `yaml:"scroll_wait" default:"2s"`
		DetailDelayMin         time.Duration `yaml:"detail_delay_min" default:"1.5s"`
		DetailDelayMax         time.Duration `yaml:"detail_delay_max" default:"3s"`
		PageDelayMin           time.Duration `yaml:"page_delay_min" default:"2s"`
		PageDelayMax           time.Duration `yaml:"page_delay_max" default:"4s"`
		RateLimitPerMinute     int           `yaml:"rate_limit_per_minute" default:"30"`
		RateLimitBurst         int           `yaml:"rate_limit_burst" default:"3"`
		CircuitBreakerFailures int           `yaml:"circuit_breaker_failures" default:"5"`
		CircuitBreakerReset    time.Duration `yaml:"circuit_breaker_reset" default:"30s"`
	} `yaml:"scraper"`

	Store struct {
		Driver   string `yaml:"driver" default:"sqlite"`
		Path     string `yaml:"path" default:"./data/jobs.db"`
		DSN      string `yaml:"dsn"`
		MaxConns int32  `yaml:"max_conns" default:"4"`
	} `yaml:"store"`

	Redis struct {
		Enabled  bool          `yaml:"enabled" default:"false"`
		URL      string        `yaml:"url" default:"redis://localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db" default:"0"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
		TaskTTL  time.Duration `yaml:"task_ttl" default:"24h"`
	} `yaml:"redis"`

	BackgroundTasks struct {
		TaskTimeout     time.Duration `yaml:"task_timeout" default:"1h"`
		CleanupInterval time.Duration `yaml:"cleanup_interval" default:"1h"`
		MaxTaskAge      time.Duration `yaml:"max_task_age" default:"24h"`
	} `yaml:"background_tasks"`

	Logging struct {
		Level    string                 `yaml:"level" default:"info"`
		Format   string                 `yaml:"format" default:"json"`
		Output   string                 `yaml:"output" default:"stdout"`
		Adapters []LoggingAdapterConfig `yaml:"adapters"`
	} `yaml:"logging"`

	// Defaults seed the settings table when it is empty
	Defaults struct {
		Keywords      []string `yaml:"keywords"`
		Sources       []string `yaml:"sources"`
		PagesToScrape int      `yaml:"pages_to_scrape" default:"3"`
		ScrapeMode    string   `yaml:"scrape_mode" default:"search"`
	} `yaml:"defaults"`
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	s = bracedEnvRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	s = bareEnvRegex.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[1:]); val != "" {
			return val
		}
		return match
	})

	return s
}

// Default returns a configuration populated with the built-in defaults
func Default() *Config {
	config := &Config{}

	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Minute
	config.Server.IdleTimeout = 60 * time.Second
	config.Server.ScrapeTimeout = 30 * time.Minute

	config.Scraper.HeadlessMode = false
	config.Scraper.StealthMode = true
	config.Scraper.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	config.Scraper.UserDataDir = "./data/browser-profile"
	config.Scraper.ViewportWidth = 1920
	config.Scraper.ViewportHeight = 1080
	config.Scraper.NavigationTimeout = 60 * time.Second
	config.Scraper.SettleDelay = 2 * time.Second
	config.Scraper.ListTimeout = 15 * time.Second
	config.Scraper.RecommendationSettle = 3 * time.Second
	config.Scraper.ScrollWait = 2 * time.Second
	config.Scraper.DetailDelayMin = 1500 * time.Millisecond
	config.Scraper.DetailDelayMax = 3 * time.Second
	config.Scraper.PageDelayMin = 2 * time.Second
	config.Scraper.PageDelayMax = 4 * time.Second
	config.Scraper.RateLimitPerMinute = 30
	config.Scraper.RateLimitBurst = 3
	config.Scraper.CircuitBreakerFailures = 5
	config.Scraper.CircuitBreakerReset = 30 * time.Second

	config.Store.Driver = "sqlite"
	config.Store.Path = "./data/jobs.db"
	config.Store.MaxConns = 4

	config.Redis.URL = "redis://localhost:6379"
	config.Redis.Timeout = 5 * time.Second
	config.Redis.TaskTTL = 24 * time.Hour

	config.BackgroundTasks.TaskTimeout = time.Hour
	config.BackgroundTasks.CleanupInterval = time.Hour
	config.BackgroundTasks.MaxTaskAge = 24 * time.Hour

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Output = "stdout"

	config.Defaults.Sources = []string{"naukri", "linkedin"}
	config.Defaults.PagesToScrape = 3
	config.Defaults.ScrapeMode = "search"

	return config
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))

			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
			}
		}
	}

	config.loadFromEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects configurations that cannot work
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Scraper.DetailDelayMin > c.Scraper.DetailDelayMax {
		return fmt.Errorf("detail_delay_min (%s) exceeds detail_delay_max (%s)", c.Scraper.DetailDelayMin, c.Scraper.DetailDelayMax)
	}
	if c.Scraper.PageDelayMin > c.Scraper.PageDelayMax {
		return fmt.Errorf("page_delay_min (%s) exceeds page_delay_max (%s)", c.Scraper.PageDelayMin, c.Scraper.PageDelayMax)
	}
	if c.Scraper.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate_limit_per_minute must not be negative")
	}

	if c.Defaults.PagesToScrape < 1 || c.Defaults.PagesToScrape > 10 {
		return fmt.Errorf("defaults.pages_to_scrape must be between 1 and 10, got %d", c.Defaults.PagesToScrape)
	}

	return nil
}

// RunLockPath is the file guarding against concurrent runs
func (c *Config) RunLockPath() string {
	if c.Store.Driver == "sqlite" && c.Store.Path != "" {
		return c.Store.Path + ".run.lock"
	}
	return "./data/harvest.run.lock"
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		c.Store.Driver = driver
	}

	if path := os.Getenv("STORE_PATH"); path != "" {
		c.Store.Path = path
	}

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Store.DSN = dsn
		if os.Getenv("STORE_DRIVER") == "" && strings.HasPrefix(dsn, "postgres") {
			c.Store.Driver = "postgres"
		}
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if redisEnabled := os.Getenv("REDIS_ENABLED"); redisEnabled != "" {
		c.Redis.Enabled = parseBool(redisEnabled)
	}

	if headless := os.Getenv("HEADLESS"); headless != "" {
		c.Scraper.HeadlessMode = parseBool(headless)
	}

	if dir := os.Getenv("BROWSER_USER_DATA_DIR"); dir != "" {
		c.Scraper.UserDataDir = dir
	}

	if chromeBin := os.Getenv("CHROME_BIN"); chromeBin != "" {
		c.Scraper.ChromeBin = chromeBin
	}

	if betterstackEnabled := os.Getenv("BETTERSTACK_ENABLED"); betterstackEnabled != "" {
		for i := range c.Logging.Adapters {
			if c.Logging.Adapters[i].Name == "betterstack" || c.Logging.Adapters[i].Type == "betterstack" {
				c.Logging.Adapters[i].Enabled = parseBool(betterstackEnabled)
				break
			}
		}
	}

	c.loadLoggingAdapterEnvVars()
}

// loadLoggingAdapterEnvVars loads environment variables for logging adapters
func (c *Config) loadLoggingAdapterEnvVars() {
	for i := range c.Logging.Adapters {
		adapter := &c.Logging.Adapters[i]
		if adapter.Type != "betterstack" {
			continue
		}

		set := func(key string, value interface{}) {
			if adapter.Options == nil {
				adapter.Options = make(map[string]interface{})
			}
			adapter.Options[key] = value
		}

		if token := os.Getenv("BETTERSTACK_SOURCE_TOKEN"); token != "" {
			set("source_token", token)
		}
		if endpoint := os.Getenv("BETTERSTACK_ENDPOINT"); endpoint != "" {
			set("endpoint", endpoint)
		}
		if maxRetries := os.Getenv("BETTERSTACK_MAX_RETRIES"); maxRetries != "" {
			if retries, err := strconv.Atoi(maxRetries); err == nil {
				set("max_retries", retries)
			}
		}
		if timeout := os.Getenv("BETTERSTACK_TIMEOUT"); timeout != "" {
			set("timeout", timeout)
		}
	}
}
