package cfg

import "time"

type Cfg struct {
	// Database configuration
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	Table      string

	// Pipeline configuration
	FeedURL       string
	WebhookURL    string
	TopicFile     string
	FetchTimeout  time.Duration
	NotifyTimeout time.Duration
	DedupByGUID   bool
	Reconcile     bool
	Once          bool

	// Application configuration
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string
	RedisAddr         string
	RedisPassword     string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
