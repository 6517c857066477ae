// Package config handles loading and validating the climate service configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The climate section pins the outdoor reference sensors (optional; they are
// auto-detected by name when empty), carries the window decision thresholds
// and the derived sensor refresh interval:
//
//	climate:
//	  outdoor_temperature_sensor: sensor.garden_temperature
//	  outdoor_humidity_sensor: sensor.garden_humidity
//	  temperature_offset: 3.0
//	  absolute_humidity_offset: 0.5
//	  absolute_humidity_warning_level: 12.0
//	  scan_interval: 30
//	  ingest:
//	    state_topic_prefix: homeassistant/statestream
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - The JWT secret guards the admin service calls
//
// Usage:
//
//	cfg, err := config.Load("configs/climate.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Climate.ScanInterval)
package config
