// Package config handles loading, validation and defaulting of the YAML
// service configuration. Each section validates independently so startup
// errors name the offending block.
package config
