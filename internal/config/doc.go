// Package config loads the clippy-ctl configuration.
//
// # Sources
//
// Settings are layered, later sources overriding earlier ones:
//
//   - Built-in defaults (Default)
//   - A TOML file, ~/.config/clippy/config.toml unless --config is given
//   - A .env file in the working directory
//   - CLIPPY_* environment variables
//
// # File Format
//
//	state_dir = "/home/me/.local/state/clippy"
//
//	[backend]
//	url = "http://localhost:3000"
//	timeout = "2m"
//
//	[sandbox]
//	runtime = "auto"          # auto, local, docker, or podman
//	boot_retries = 3
//	boot_base_delay = "1s"
//
//	[preview]
//	install_command = "npm install"
//	dev_command = "npm run dev"
//	install_window = "2s"
//	dev_window = "3s"
//
//	[server]
//	listen = "127.0.0.1:7070"
//
// Durations are strings accepted by time.ParseDuration. Unknown keys are
// rejected.
//
// # Validation
//
// Load validates the merged result with struct tags and a few manual
// checks. Failures carry the config or validation exit codes.
package config
