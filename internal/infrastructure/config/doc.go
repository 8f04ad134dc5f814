// Package config loads the controller's YAML configuration.
//
// Values resolve in three layers: built-in defaults, then the config
// file, then GREENHOUSE_* environment variables, with Validate run on
// the result. Credentials (broker password, Influx token) belong in
// the environment, not the file.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
package config
