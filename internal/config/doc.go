// Package config loads the UptimeGuard YAML configuration.
//
// Load(path) applies defaults before unmarshalling, then validates. Secrets
// (SMTP password, webhook URLs, API key, cron secret, Postgres DSN) are never
// stored in the file; the file names the environment variable that holds
// each one. Watch re-runs Load whenever the file changes.
package config
