// Package config loads the reminder settings from an optional YAML file, a
// .env file and the process environment.
package config
