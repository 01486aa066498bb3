package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "ESO_FEED_CONFIG"
	logLevelEnv     = "ESO_FEED_LOG_LEVEL"
	outputDirEnv    = "ESO_FEED_OUTPUT_DIR"
	historyDSNEnv   = "ESO_FEED_HISTORY_DSN"
	cronEnv         = "ESO_FEED_CRON"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	HTTP      HTTPConfig      `yaml:"http"`
	Blog      BlogConfig      `yaml:"blog"`
	Forum     ForumConfig     `yaml:"forum"`
	Feed      FeedConfig      `yaml:"feed"`
	Output    OutputConfig    `yaml:"output"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	History   HistoryConfig   `yaml:"history"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// HTTPConfig bounds every page fetch.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// BlogConfig points at the news blog announcements listing.
type BlogConfig struct {
	BaseURL     string `yaml:"baseUrl"`
	ListingPath string `yaml:"listingPath"`
	// UserAgent is required by the blog to serve rendered pages.
	UserAgent   string `yaml:"userAgent"`
	Concurrency int    `yaml:"concurrency"`
}

// ListingURL joins the base URL and the listing path.
func (b BlogConfig) ListingURL() string {
	return b.BaseURL + b.ListingPath
}

// ForumConfig points at the forum category holding announcement threads.
type ForumConfig struct {
	CategoryURL      string   `yaml:"categoryUrl"`
	ExcludedTitles   []string `yaml:"excludedTitles"`
	ExcludedKeywords []string `yaml:"excludedKeywords"`
	Concurrency      int      `yaml:"concurrency"`
}

// FeedConfig describes the syndication channel.
type FeedConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Link        string `yaml:"link"`
	Language    string `yaml:"language"`
	Favicon     string `yaml:"favicon"`
	Generator   string `yaml:"generator"`
}

// OutputConfig lists template inputs and artifact destinations.
type OutputConfig struct {
	FeedPath      string `yaml:"feedPath"`
	PagePath      string `yaml:"pagePath"`
	HeaderPath    string `yaml:"headerPath"`
	FooterPath    string `yaml:"footerPath"`
	FallbackImage string `yaml:"fallbackImage"`
}

// SchedulerConfig defines when the schedule command runs the pipeline.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// HistoryConfig enables the sqlite run log when DSN is set.
type HistoryConfig struct {
	DSN string `yaml:"dsn"`
}

// Enabled reports whether runs should be recorded.
func (h HistoryConfig) Enabled() bool {
	return h.DSN != ""
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An explicit path wins over the ESO_FEED_CONFIG variable.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(outputDirEnv); v != "" {
		c.Output.FeedPath = filepath.Join(v, "feed.rss")
		c.Output.PagePath = filepath.Join(v, "index.html")
	}

	if v := os.Getenv(historyDSNEnv); v != "" {
		c.History.DSN = v
	}

	if v := os.Getenv(cronEnv); v != "" {
		c.Scheduler.CronExpression = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.HTTP.Timeout > 0 {
		base.HTTP.Timeout = override.HTTP.Timeout
	}

	if override.Blog.BaseURL != "" {
		base.Blog.BaseURL = override.Blog.BaseURL
	}
	if override.Blog.ListingPath != "" {
		base.Blog.ListingPath = override.Blog.ListingPath
	}
	if override.Blog.UserAgent != "" {
		base.Blog.UserAgent = override.Blog.UserAgent
	}
	if override.Blog.Concurrency > 0 {
		base.Blog.Concurrency = override.Blog.Concurrency
	}

	if override.Forum.CategoryURL != "" {
		base.Forum.CategoryURL = override.Forum.CategoryURL
	}
	if override.Forum.ExcludedTitles != nil {
		base.Forum.ExcludedTitles = override.Forum.ExcludedTitles
	}
	if override.Forum.ExcludedKeywords != nil {
		base.Forum.ExcludedKeywords = override.Forum.ExcludedKeywords
	}
	if override.Forum.Concurrency > 0 {
		base.Forum.Concurrency = override.Forum.Concurrency
	}

	if override.Feed.Title != "" {
		base.Feed.Title = override.Feed.Title
	}
	if override.Feed.Description != "" {
		base.Feed.Description = override.Feed.Description
	}
	if override.Feed.Link != "" {
		base.Feed.Link = override.Feed.Link
	}
	if override.Feed.Language != "" {
		base.Feed.Language = override.Feed.Language
	}
	if override.Feed.Favicon != "" {
		base.Feed.Favicon = override.Feed.Favicon
	}
	if override.Feed.Generator != "" {
		base.Feed.Generator = override.Feed.Generator
	}

	if override.Output.FeedPath != "" {
		base.Output.FeedPath = override.Output.FeedPath
	}
	if override.Output.PagePath != "" {
		base.Output.PagePath = override.Output.PagePath
	}
	if override.Output.HeaderPath != "" {
		base.Output.HeaderPath = override.Output.HeaderPath
	}
	if override.Output.FooterPath != "" {
		base.Output.FooterPath = override.Output.FooterPath
	}
	if override.Output.FallbackImage != "" {
		base.Output.FallbackImage = override.Output.FallbackImage
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.History.DSN != "" {
		base.History.DSN = override.History.DSN
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		HTTP:    HTTPConfig{Timeout: 30 * time.Second},
		Blog: BlogConfig{
			BaseURL:     "https://www.elderscrollsonline.com",
			ListingPath: "/en-us/news/category/announcements",
			UserAgent:   "Googlebot",
			Concurrency: 4,
		},
		Forum: ForumConfig{
			CategoryURL:      "https://forums.elderscrollsonline.com/en/categories/general-discussion",
			ExcludedTitles:   []string{"Community Rules"},
			ExcludedKeywords: []string{"forum", "thread"},
			Concurrency:      4,
		},
		Feed: FeedConfig{
			Title:       "ESO Announcements",
			Description: "Combined ESO blog and forum post announcements feed",
			Link:        "https://www.elderscrollsonline.com/",
			Language:    "en-us",
			Favicon:     "https://www.elderscrollsonline.com/favicon.ico",
			Generator:   "ESOAnnouncements",
		},
		Output: OutputConfig{
			FeedPath:      "webroot/feed.rss",
			PagePath:      "webroot/index.html",
			HeaderPath:    "header.html",
			FooterPath:    "footer.html",
			FallbackImage: "img/forums.jpg",
		},
		Scheduler: SchedulerConfig{CronExpression: "0 * * * *", Timezone: defaultTimezone, location: tz},
	}
}
