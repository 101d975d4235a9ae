// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride lets tests pin the config directory instead of relying on
// os.UserConfigDir, which reads platform-specific environment.
var configDirOverride string

// Reset clears test overrides.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride sets a custom config directory path.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
