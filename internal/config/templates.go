package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Option Radar Configuration

[radar]
# Index symbols shown as dashboard tabs, processed one after another
symbols = ["NIFTY", "BANKNIFTY"]
# Strike spacing used for the ATM window
strike_step = 50.0
# Default number of strikes on each side of ATM (1-20)
default_half_width = 5
# Dashboard refresh cadence
refresh_interval = "30s"
# Data source: "nse" (live) or "file" (replay JSON snapshots from fixture_dir)
source = "nse"
# fixture_dir = "/path/to/snapshots"

# Per-symbol strike spacing overrides
[radar.strike_steps]
banknifty = 100.0

[upstream]
base_url = "https://www.nseindia.com"
chain_path = "/api/option-chain-indices"
# Per-request timeout
timeout = "5s"
# A failed chain request is retried once after a random delay in this range
retry_min_delay = "1s"
retry_max_delay = "3s"
user_agent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
accept_language = "en-US,en;q=0.9"
referer = "https://www.nseindia.com/option-chain"
requests_per_second = 1.0
burst = 2
# Consecutive failures before the upstream is skipped for breaker_cooldown
breaker_failures = 5
breaker_cooldown = "60s"

[server]
listen_addr = "127.0.0.1:8501"

[logging]
# debug, info, warn, error
level = "info"
console = true
file = true
# file_path = "/var/log/option-radar/radar.log"
max_size_mb = 50
max_backups = 5
max_age_days = 14
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
