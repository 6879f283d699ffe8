package main

import (
	"fmt"
	"os"
	"time"

	"DetOverlay/health"
	"DetOverlay/overlay"
	"DetOverlay/projection"
	"DetOverlay/remote"
	"DetOverlay/session"

	"gopkg.in/yaml.v3"
)

type configStruct struct {
	ListenAddr            string  `yaml:"ListenAddr"`
	MetricsPort           int     `yaml:"MetricsPort"`
	BaseURL               string  `yaml:"BaseURL"`
	PredictTimeoutSeconds int     `yaml:"PredictTimeoutSeconds"`
	HealthTimeoutSeconds  int     `yaml:"HealthTimeoutSeconds"`
	HealthIntervalSeconds int     `yaml:"HealthIntervalSeconds"`
	DefaultConfidence     float64 `yaml:"DefaultConfidence"`
	ListLimit             int     `yaml:"ListLimit"`
	SurfaceWidth          int     `yaml:"SurfaceWidth"`
	SurfaceHeight         int     `yaml:"SurfaceHeight"`
	SessionIdleMinutes    int     `yaml:"SessionIdleMinutes"`
	ColorByClass          bool    `yaml:"ColorByClass"`
	LogMode               string  `yaml:"LogMode"`
}

func defaultConfig() configStruct {
	return configStruct{
		ListenAddr:            ":8080",
		MetricsPort:           9090,
		BaseURL:               remote.DefaultBaseURL,
		PredictTimeoutSeconds: int(remote.DefaultPredictTimeout / time.Second),
		HealthTimeoutSeconds:  int(health.DefaultTimeout / time.Second),
		HealthIntervalSeconds: 30,
		DefaultConfidence:     session.DefaultThreshold,
		ListLimit:             projection.DefaultLimit,
		SurfaceWidth:          session.DefaultSurfaceWidth,
		SurfaceHeight:         session.DefaultSurfaceHeight,
		SessionIdleMinutes:    30,
		LogMode:               "production",
	}
}

// loadConfig reads path over the defaults. A missing file means defaults.
func loadConfig(path string) (configStruct, error) {
	config := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.fillDefaults()
	return config, nil
}

// fillDefaults replaces zero or out-of-range values.
func (c *configStruct) fillDefaults() {
	d := defaultConfig()
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.PredictTimeoutSeconds <= 0 {
		c.PredictTimeoutSeconds = d.PredictTimeoutSeconds
	}
	if c.HealthTimeoutSeconds <= 0 {
		c.HealthTimeoutSeconds = d.HealthTimeoutSeconds
	}
	if c.HealthIntervalSeconds < 0 {
		c.HealthIntervalSeconds = 0
	}
	if c.DefaultConfidence < 0 || c.DefaultConfidence > 1 {
		c.DefaultConfidence = d.DefaultConfidence
	}
	if c.ListLimit <= 0 {
		c.ListLimit = d.ListLimit
	}
	if c.SurfaceWidth <= 0 {
		c.SurfaceWidth = d.SurfaceWidth
	}
	if c.SurfaceHeight <= 0 {
		c.SurfaceHeight = d.SurfaceHeight
	}
	c.BaseURL = remote.ResolveBaseURL(c.BaseURL)
}

func (c configStruct) sessionOptions() session.Options {
	style := overlay.DefaultStyle()
	style.ColorByClass = c.ColorByClass
	return session.Options{
		Style:         style,
		ListLimit:     c.ListLimit,
		Threshold:     c.DefaultConfidence,
		SurfaceWidth:  c.SurfaceWidth,
		SurfaceHeight: c.SurfaceHeight,
	}
}
