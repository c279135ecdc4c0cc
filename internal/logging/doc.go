// Package logging provides slog loggers with per-module levels.
//
// Initialize once at startup, then get a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"pcm512x": "debug",
//		},
//	})
//
//	log := logging.GetLogger("pcm512x")
//	log.Debug("Dividers", "bclk", 4, "lrclk", 64)
//
// Records go to stderr and, when journald is reachable, to the systemd journal
// under the hbclk identifier:
//
//	journalctl -t hbclk MODULE=dac2hd
//
// Loggers created before Initialize are re-leveled and get the configured handler chain.
package logging
