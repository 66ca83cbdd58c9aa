package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "admiral":
		return admiralTemplate, nil
	case "endpoints":
		return endpointsTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const admiralTemplate = `name = "admiral"
listen_addr = ":5321"
queue_capacity = 50
retry_interval = "30s"
read_timeout = "0s"
network_arena_bytes = 8192
endpoints_file = "cmd/admiral/endpoints.toml"

# Admin HTTP (health, ready, metrics, status). Empty disables it.
admin_addr = ""
cors_origins = ["http://localhost:3000"]

# log | tcp
forward_mode = "log"
forward_connect_timeout = "5s"
forward_write_timeout = "5s"
forward_max_attempts = 3
`

const endpointsTemplate = `[[endpoints]]
id = 0
name = "admiral"
host = "100.109.120.90"
port = 5321

[[endpoints]]
id = 1
name = "hotel"
host = "100.103.121.7"
port = 4200

[[endpoints]]
id = 2
name = "scheduler"
host = "100.103.121.7"
port = 6767
`
