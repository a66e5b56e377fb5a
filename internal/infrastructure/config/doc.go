// Package config handles loading and validating relay configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading .env files into the environment
//   - Overriding with NOTECARD_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Only hub.product has no default. Every other setting falls back to the
// values the relay has always shipped with: serial transport on /dev/ttyUSB0
// at 9600 baud, a 30 second upload period, ingestion on localhost:5000 at
// /minimon, and MQTT, InfluxDB and the SQLite journal disabled.
//
// Security Considerations:
//   - Credentials (MQTT password, InfluxDB token) should come from the
//     environment or a .env file, not the YAML file
//   - Enabling clock.correct_host requires CAP_SYS_TIME
//
// Usage:
//
//	if err := config.LoadDotEnv(".env"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.UploadPeriod())
package config
