// Package config loads the cdrprocess configuration.
//
// # Configuration Sources
//
// Values are layered in the following order, later sources winning:
//
//	1. Built-in defaults (Default)
//	2. YAML file (--config, config.yaml or configs/config.yaml)
//	3. Environment variables prefixed with CDR_
//
// # Environment Variables
//
// Nested sections map to underscore separated names:
//
//	CDR_LOGGING_LEVEL=debug
//	CDR_DATABASE_DRIVER=sqlserver
//	CDR_PIPELINE_BATCH_SIZE=500
//	CDR_SETTINGS_PROFILE=HD_MSSQL
//	CDR_TELEMETRY_METRICS_FILE=/var/lib/node_exporter/cdr.prom
//
// # Validation
//
// The merged configuration is checked with validator struct tags plus a
// cross-field check that the business hours window is not empty.
package config
