// Package config handles loading and validating panelnode configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (PANELNODE_*)
//   - Validation of required fields
//   - Default values, including a MAC address derived from the device id
//
// Sensitive values (broker password, InfluxDB token) should be set via
// environment variables rather than committed to the config file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Device.Name, cfg.Mode)
package config
