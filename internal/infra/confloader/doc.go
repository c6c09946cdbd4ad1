// Package confloader loads onelogin configuration with koanf.
//
// Sources, later overriding earlier:
//
//  1. Defaults supplied by the caller
//  2. A YAML configuration file
//  3. Environment variables (ONELOGIN_ prefix)
//
// Environment variable names map onto configuration keys by lowercasing and
// turning underscores into dots, except that underscores belonging to a
// known key name are kept: ONELOGIN_STORAGE_ENCRYPTION_KEY sets
// storage.encryption_key when that key has a default.
//
// Watcher reports changes of the configuration file so the server can
// apply the settings that are safe to change at runtime.
package confloader
