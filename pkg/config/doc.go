// Package config provides configuration management for the decisioning client.
//
// Configuration is loaded from YAML files with environment variable overrides,
// completed with defaults and validated before use.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("odd.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("odd.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention ODD_SECTION_FIELD.
// For example:
//
//   - ODD_CLIENT_ORG_ID overrides client.org_id
//   - ODD_RULES_POLLING_INTERVAL overrides rules.polling_interval
//   - ODD_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// There is no package-level configuration. Components receive the sections
// they need from the caller.
package config
