package config

// RegistryConfig locates the project registry database.
type RegistryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DockerConfig configures docker integration.
type DockerConfig struct {
	// Binary used for "docker compose up -d"
	Binary string `yaml:"binary"`

	// Timeout for daemon API calls
	Timeout string `yaml:"timeout"`
}
