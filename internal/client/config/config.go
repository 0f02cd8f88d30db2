package config

import "time"

// Config holds runtime settings for the authctl client.
//
// Fields:
//   - ServerEndpointAddr: host:port of the gophauth gRPC endpoint.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - SessionDB: path of the sqlite file that keeps the session between runs.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	SessionDB           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 10 * time.Second
	c.SessionDB = "authctl.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
