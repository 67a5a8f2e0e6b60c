package config

// PortsConfig configures host port allocation.
type PortsConfig struct {
	// First port tried for the web service
	Start int `yaml:"start"`

	// Upper bound on candidates tried before giving up
	MaxAttempts int `yaml:"max_attempts"`

	// Listening-socket query tool ("ss" or "netstat")
	SocketTool string `yaml:"socket_tool"`

	// Consult docker for ports published by running containers
	ProbeDocker bool `yaml:"probe_docker"`

	// Treat ports of registered projects as taken
	ProbeRegistry bool `yaml:"probe_registry"`
}
