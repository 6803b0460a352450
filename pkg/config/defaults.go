package config

// DefaultConfig returns the configuration used before the file and the
// environment are applied.
func DefaultConfig() *Config {
	return &Config{
		Relay: RelayConfig{
			ThreadsFile:      "~/.picorelay/threads.json",
			SendIntervalMS:   1000,
			SendBurst:        1,
			FallbackToSender: true,
			MediaDir:         "~/.picorelay/media",
			PhotoLimit:       10,
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 18795,
		},
		Digest: DigestConfig{
			Enabled: false,
			Cron:    "0 9 * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
