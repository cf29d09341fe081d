// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Loading applies defaults for every optional field and validates that the
// store connection and service endpoint are present before any run starts.
// See configs/normalizer.example.yaml for the full schema.
package config
