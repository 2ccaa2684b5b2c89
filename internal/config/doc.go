// Package config defines the settings of a packaging run and provides
// helpers to read, validate and save them in YAML format.
//
// Settings start from host-derived defaults, are overlaid with an optional
// YAML file and finally with CLI flags. Validate reports every invalid field
// at once.
package config
