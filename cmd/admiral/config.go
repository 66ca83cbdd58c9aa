package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/admiral/internal/admiral"
	"github.com/danmuck/admiral/internal/config"
)

// options are the command-line inputs; flags override file values.
type options struct {
	ConfigPath    string
	EndpointsPath string
	ListenAddr    string
	AdminAddr     string
}

func resolveConfig(opts options) (admiral.ServiceConfig, error) {
	cfg := admiral.DefaultServiceConfig()
	endpointsPath := ""

	if strings.TrimSpace(opts.ConfigPath) != "" {
		loaded, path, err := loadServiceConfig(opts.ConfigPath)
		if err != nil {
			return admiral.ServiceConfig{}, err
		}
		cfg = loaded
		endpointsPath = path
	}
	if v := strings.TrimSpace(opts.EndpointsPath); v != "" {
		endpointsPath = v
	}
	if endpointsPath != "" {
		entries, err := config.LoadEndpoints(endpointsPath)
		if err != nil {
			return admiral.ServiceConfig{}, err
		}
		cfg.Endpoints = entries
	}
	if v := strings.TrimSpace(opts.ListenAddr); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := strings.TrimSpace(opts.AdminAddr); v != "" {
		cfg.AdminAddr = v
	}
	return cfg, nil
}

// loadServiceConfig overlays the keys present in path onto the service
// defaults. It also returns the endpoints_file value, if any.
func loadServiceConfig(path string) (admiral.ServiceConfig, string, error) {
	cfg := admiral.DefaultServiceConfig()

	var raw config.ServiceFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return admiral.ServiceConfig{}, "", fmt.Errorf("load admiral config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return admiral.ServiceConfig{}, "", fmt.Errorf("load admiral config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("name") {
		if name := strings.TrimSpace(raw.Name); name != "" {
			cfg.Name = name
		}
	}
	if meta.IsDefined("listen_addr") {
		cfg.Server.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("queue_capacity") {
		cfg.QueueCapacity = raw.QueueCapacity
	}
	if meta.IsDefined("retry_interval") {
		d, err := parseDuration("retry_interval", raw.RetryInterval)
		if err != nil {
			return admiral.ServiceConfig{}, "", err
		}
		cfg.RetryInterval = d
	}
	if meta.IsDefined("read_timeout") {
		d, err := parseDuration("read_timeout", raw.ReadTimeout)
		if err != nil {
			return admiral.ServiceConfig{}, "", err
		}
		cfg.Server.ReadTimeout = d
	}
	if meta.IsDefined("network_arena_bytes") {
		cfg.Server.ArenaBytes = raw.NetworkArenaBytes
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}
	if meta.IsDefined("forward_mode") {
		cfg.ForwardMode = admiral.ForwardMode(strings.TrimSpace(raw.ForwardMode))
	}
	if meta.IsDefined("forward_connect_timeout") {
		d, err := parseDuration("forward_connect_timeout", raw.ForwardConnectTimeout)
		if err != nil {
			return admiral.ServiceConfig{}, "", err
		}
		cfg.Forward.ConnectTimeout = d
	}
	if meta.IsDefined("forward_write_timeout") {
		d, err := parseDuration("forward_write_timeout", raw.ForwardWriteTimeout)
		if err != nil {
			return admiral.ServiceConfig{}, "", err
		}
		cfg.Forward.WriteTimeout = d
	}
	if meta.IsDefined("forward_max_attempts") {
		cfg.Forward.MaxAttempts = raw.ForwardMaxAttempts
	}

	endpoints := ""
	if meta.IsDefined("endpoints_file") {
		endpoints = strings.TrimSpace(raw.EndpointsFile)
	}
	return cfg, endpoints, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		if v := strings.TrimSpace(origin); v != "" {
			out = append(out, v)
		}
	}
	return out
}
