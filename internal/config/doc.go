// Package config loads the runtime configuration of the UOMI agent. Settings
// come from a YAML file and are then overlaid with environment variables, so
// a deployment can keep one checked-in file and override secrets and
// per-environment values at start-up.
package config
