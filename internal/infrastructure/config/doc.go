// Package config loads and validates the chardev host configuration.
//
// Configuration is read from a YAML file, merged over hardcoded defaults,
// and finally overridden by CHARDEV_* environment variables. Validation
// runs last, so a bad override fails startup the same way a bad file does.
package config
