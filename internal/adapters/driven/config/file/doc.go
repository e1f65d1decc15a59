// Package file provides file-based configuration and prompt stores.
// Configuration lives in a TOML file under the mailrag config
// directory; prompt templates live alongside it as user-editable text
// files with embedded defaults.
package file
