package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/admiral/internal/endpoint"
	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("config: invalid")

// ServiceFile is the on-disk shape of admiral.toml. Durations are Go
// duration strings.
type ServiceFile struct {
	Name                  string   `toml:"name"`
	ListenAddr            string   `toml:"listen_addr"`
	QueueCapacity         int      `toml:"queue_capacity"`
	RetryInterval         string   `toml:"retry_interval"`
	ReadTimeout           string   `toml:"read_timeout"`
	NetworkArenaBytes     int      `toml:"network_arena_bytes"`
	EndpointsFile         string   `toml:"endpoints_file"`
	AdminAddr             string   `toml:"admin_addr"`
	CorsOrigins           []string `toml:"cors_origins"`
	ForwardMode           string   `toml:"forward_mode"`
	ForwardConnectTimeout string   `toml:"forward_connect_timeout"`
	ForwardWriteTimeout   string   `toml:"forward_write_timeout"`
	ForwardMaxAttempts    int      `toml:"forward_max_attempts"`
}

// EndpointsFile is the on-disk shape of endpoints.toml.
type EndpointsFile struct {
	Endpoints []EndpointConfig `toml:"endpoints"`
}

type EndpointConfig struct {
	ID   int    `toml:"id"`
	Name string `toml:"name"`
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadEndpoints reads an endpoint directory. An empty path yields the
// built-in LIONS table.
func LoadEndpoints(path string) ([]endpoint.Entry, error) {
	if strings.TrimSpace(path) == "" {
		return endpoint.DefaultEntries(), nil
	}
	var file EndpointsFile
	if err := loadToml(path, &file, false); err != nil {
		return nil, err
	}
	if err := ValidateEndpoints(file.Endpoints); err != nil {
		return nil, fmt.Errorf("endpoints %s: %w", path, err)
	}
	entries := ToEntries(file.Endpoints)
	if _, err := endpoint.NewRegistry(entries); err != nil {
		return nil, fmt.Errorf("endpoints %s: %w", path, err)
	}
	return entries, nil
}

func ValidateEndpoints(cfgs []EndpointConfig) error {
	if len(cfgs) == 0 {
		return fmt.Errorf("%w: no endpoints defined", ErrInvalidConfig)
	}
	for i, c := range cfgs {
		if c.ID < 0 || c.ID > 254 {
			return fmt.Errorf("%w: endpoint[%d] id %d out of range 0..254", ErrInvalidConfig, i, c.ID)
		}
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: endpoint[%d] name is required", ErrInvalidConfig, i)
		}
		if strings.TrimSpace(c.Host) == "" {
			return fmt.Errorf("%w: endpoint[%d] host is required", ErrInvalidConfig, i)
		}
		if c.Port < 1 || c.Port > 65535 {
			return fmt.Errorf("%w: endpoint[%d] port %d out of range", ErrInvalidConfig, i, c.Port)
		}
	}
	return nil
}

// ToEntries converts validated file rows to registry entries.
func ToEntries(cfgs []EndpointConfig) []endpoint.Entry {
	out := make([]endpoint.Entry, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, endpoint.Entry{
			ID:   endpoint.Identity(c.ID),
			Name: strings.TrimSpace(c.Name),
			Host: strings.TrimSpace(c.Host),
			Port: uint16(c.Port),
		})
	}
	return out
}

// ValidateServiceFile strictly decodes admiral.toml, rejecting unknown
// keys, and checks every value that the service would parse at startup.
func ValidateServiceFile(path string) (ServiceFile, error) {
	var file ServiceFile
	if err := loadToml(path, &file, true); err != nil {
		return ServiceFile{}, err
	}
	for key, raw := range map[string]string{
		"retry_interval":          file.RetryInterval,
		"read_timeout":            file.ReadTimeout,
		"forward_connect_timeout": file.ForwardConnectTimeout,
		"forward_write_timeout":   file.ForwardWriteTimeout,
	} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := time.ParseDuration(strings.TrimSpace(raw)); err != nil {
			return ServiceFile{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
	}
	switch strings.TrimSpace(file.ForwardMode) {
	case "", "log", "tcp":
	default:
		return ServiceFile{}, fmt.Errorf("%w: forward_mode %q", ErrInvalidConfig, file.ForwardMode)
	}
	if file.QueueCapacity < 0 || file.NetworkArenaBytes < 0 || file.ForwardMaxAttempts < 0 {
		return ServiceFile{}, fmt.Errorf("%w: negative size or count", ErrInvalidConfig)
	}
	return file, nil
}

func loadToml(path string, out any, strict bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}
