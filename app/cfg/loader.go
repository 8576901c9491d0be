package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/lysyi3m/sinkhole-watch/app/database"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBDriver   string `long:"db-driver" env:"DB_DRIVER" default:"sqlite" choice:"sqlite" choice:"postgres" description:"Database driver"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/sinkholes.db" description:"SQLite database file (sqlite driver only)"`
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host (postgres driver only)"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port (postgres driver only)"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"sinkhole" description:"Database user (postgres driver only)"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" description:"Database password (postgres driver only)"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"sinkhole_watch" description:"Database name (postgres driver only)"`
	Table      string `long:"table" env:"SINKHOLE_TABLE" default:"sinkholes" description:"Table holding sinkhole reports"`

	// Pipeline configuration
	FeedURL       string        `long:"feed-url" env:"FEED_URL" description:"RSS feed to watch (required)"`
	WebhookURL    string        `long:"webhook-url" env:"WEBHOOK_URL" description:"Incoming webhook receiving notifications"`
	TopicFile     string        `long:"topic-file" env:"TOPIC_FILE" description:"YAML file with the topic keywords (built-in keywords when empty)"`
	FetchTimeout  time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30s" description:"Timeout for fetching the feed"`
	NotifyTimeout time.Duration `long:"notify-timeout" env:"NOTIFY_TIMEOUT" default:"10s" description:"Timeout for a single webhook delivery"`
	DedupByGUID   bool          `long:"dedup-guid" env:"DEDUP_GUID" description:"Skip entries whose guid is already stored"`
	Reconcile     bool          `long:"reconcile" env:"RECONCILE" description:"Notify and mark reports left unnotified by an earlier run on startup"`
	Once          bool          `long:"once" description:"Run the ingestion pipeline once and exit"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://sinkholes.example.com)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of background workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"600" description:"Seconds between ingestion runs"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key protecting updates and run triggers (optional)"`
	RedisAddr         string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the shared run lock (in-process lock when empty)"`
	RedisPassword     string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Sinkhole Watch/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Seoul)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses the process arguments and environment. It returns nil, nil when
// help was requested.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBDriver:          raw.DBDriver,
		DBPath:            raw.DBPath,
		DBHost:            raw.DBHost,
		DBPort:            raw.DBPort,
		DBUser:            raw.DBUser,
		DBPassword:        raw.DBPassword,
		DBName:            raw.DBName,
		Table:             raw.Table,
		FeedURL:           strings.TrimSpace(raw.FeedURL),
		WebhookURL:        strings.TrimSpace(raw.WebhookURL),
		TopicFile:         raw.TopicFile,
		FetchTimeout:      raw.FetchTimeout,
		NotifyTimeout:     raw.NotifyTimeout,
		DedupByGUID:       raw.DedupByGUID,
		Reconcile:         raw.Reconcile,
		Once:              raw.Once,
		Port:              raw.Port,
		BaseUrl:           strings.TrimRight(raw.BaseUrl, "/"),
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		RedisAddr:         raw.RedisAddr,
		RedisPassword:     raw.RedisPassword,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

// DSN returns the data source name for the configured driver.
func (c *Cfg) DSN() string {
	if c.DBDriver == database.DriverPostgres {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
	}
	return c.DBPath
}

// SelfURL is the public URL under which the service is reachable.
func (c *Cfg) SelfURL() string {
	if c.BaseUrl != "" {
		return c.BaseUrl
	}
	return fmt.Sprintf("http://localhost:%s", c.Port)
}

func (c *Cfg) validate() error {
	if c.DBDriver != database.DriverSQLite && c.DBDriver != database.DriverPostgres {
		return fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}
	if _, err := url.ParseRequestURI(c.FeedURL); err != nil {
		return fmt.Errorf("feed URL %q is not a valid URL", c.FeedURL)
	}
	if c.WebhookURL != "" {
		if _, err := url.ParseRequestURI(c.WebhookURL); err != nil {
			return fmt.Errorf("webhook URL %q is not a valid URL", c.WebhookURL)
		}
	}
	if err := database.ValidateTableName(c.Table); err != nil {
		return err
	}

	nonPositiveFields := map[string]int{
		"worker count":       c.WorkerCount,
		"scheduler interval": c.SchedulerInterval,
	}
	for fieldName, fieldValue := range nonPositiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if c.FetchTimeout <= 0 || c.NotifyTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
