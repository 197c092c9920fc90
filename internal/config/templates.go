package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# IPO Tracker Configuration

[user]
# Owner of the IPOs and alert rules the CLI works with
# (override with IPOTRACKER_USER_ID or --user)
id = ""

[store]
# SQLite database path; empty means <config dir>/ipotracker.db
path = ""

[quote]
# Base URL of the scraping service exposing /api/scrape/cmp and /api/scrape/groww
base_url = "http://localhost:8000"
# Per-request timeout
timeout = "30s"
# Requests per second sent to the scraping service
rate_limit = 1.0
burst = 1
# Attempts per quote before giving up
max_attempts = 2
# Parallel quote fetches during bulk pricing
concurrency = 4

[alerts]
# Cron schedule (with seconds) in IST for the alert check
schedule = "0 45 15 * * MON-FRI"
# Only check IPOs marked as portfolio holdings
portfolio_only = true
# Check every user's IPOs instead of only [user].id
all_users = true

[server]
port = 8080
dev_mode = false

[log]
# debug, info, warn, error
level = "info"
console = true
file = true
file_path = ""
max_size = 50
max_backups = 5
max_age = 30
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
