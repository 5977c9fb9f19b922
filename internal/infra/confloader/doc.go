// Package confloader provides the configuration loading mechanism.
//
// It wraps koanf to merge configuration from several sources into a typed
// struct, and fsnotify to watch the configuration file for changes.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables (NODESTORE_SECTION_KEY)
//  3. Configuration file (YAML)
//  4. Default values already set in the target struct
package confloader
