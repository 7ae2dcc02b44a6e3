package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeBackend(); err != nil {
		return err
	}
	if err := c.normalizeSession(); err != nil {
		return err
	}
	c.normalizePoller()
	c.normalizeNotifications()
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeBackend() error {
	if value, ok := os.LookupEnv("CBIR_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Backend.BaseURL = value
	}
	base := strings.TrimSpace(c.Backend.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("backend.base_url: %w", err)
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	c.Backend.BaseURL = strings.TrimRight(parsed.String(), "/")
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = defaultRequestTimeout
	}
	return nil
}

func (c *Config) normalizeSession() error {
	if value, ok := os.LookupEnv("CBIR_SESSION_PATH"); ok && strings.TrimSpace(value) != "" {
		c.Session.Path = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Session.Path) == "" {
		c.Session.Path = defaultSessionPath
	}
	var err error
	if c.Session.Path, err = expandPath(c.Session.Path); err != nil {
		return fmt.Errorf("session.path: %w", err)
	}
	return nil
}

func (c *Config) normalizePoller() {
	if c.Poller.IntervalMS <= 0 {
		c.Poller.IntervalMS = defaultPollIntervalMS
	}
}

func (c *Config) normalizeNotifications() {
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("CBIR_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeJournal() error {
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = defaultJournalPath
	}
	var err error
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
	return nil
}
