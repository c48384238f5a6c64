// Package config handles loading and validating Skynet Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with SKYNET_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token, JWT secret) should be
//     set via environment variables
//   - An empty security.jwt.secret disables API authentication; only do this
//     on an isolated network
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Topics.SensorPrefix)
package config
