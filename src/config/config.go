package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config holds the full application configuration.
type Config struct {
	Dataset struct {
		Path      string `json:"path"`       // xlsx file the dashboard reads
		SheetName string `json:"sheet_name"` // empty means first sheet
		DataDir   string `json:"data_dir"`   // where ingested attachments land
	} `json:"dataset"`

	Server struct {
		Addr         string   `json:"addr"`
		ReadTimeout  Duration `json:"read_timeout"`
		WriteTimeout Duration `json:"write_timeout"`
	} `json:"server"`

	Email struct {
		Server        string   `json:"server"` // IMAP server address, host:port
		Username      string   `json:"username"`
		Password      string   `json:"password"`
		TargetSubject string   `json:"target_subject"` // subject keyword of dataset mails
		CheckInterval Duration `json:"check_interval"`
	} `json:"email"`

	Report struct {
		SMTPServer string `json:"smtp_server"`
		Username   string `json:"username"`
		Password   string `json:"password"`
		To         string `json:"to"`
		WebhookURL string `json:"webhook_url"`
		Schedule   string `json:"schedule"` // cron spec, e.g. "@daily"
	} `json:"report"`

	LogName    string `json:"log_name"`
	LogMaxSize string `json:"log_max_size"`
}

var (
	once     sync.Once
	instance *Config
)

// LoadConfig reads the config file once per process and returns the cached
// instance on subsequent calls.
func LoadConfig(jsonFolder, jsonFile string) (*Config, error) {
	var err error
	once.Do(func() {
		instance, err = loadConfig(filepath.Join(jsonFolder, jsonFile))
	})
	if instance == nil && err == nil {
		err = fmt.Errorf("config was not loaded")
	}
	return instance, err
}

// Load reads a config file without the process-wide cache. Tools and tests
// use it directly.
func Load(path string) (*Config, error) {
	return loadConfig(path)
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(15 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(30 * time.Second)
	}
	if c.Email.CheckInterval == 0 {
		c.Email.CheckInterval = Duration(5 * time.Minute)
	}
	if c.Report.Schedule == "" {
		c.Report.Schedule = "@daily"
	}
	if c.LogName == "" {
		c.LogName = "app.log"
	}
}

// Validate reports configuration that cannot possibly work.
func (c *Config) Validate() error {
	if c.Dataset.Path == "" {
		return fmt.Errorf("dataset.path is required")
	}
	return nil
}

// Duration wraps time.Duration so it can be written as "5m" in JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
