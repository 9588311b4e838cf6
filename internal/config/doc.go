// Package config provides configuration structures and utilities for aaofetch.
// It defines the listing endpoint, download directory, politeness delays and
// the layered loading of settings from defaults, a YAML file, the environment
// and finally command line flags.
package config
