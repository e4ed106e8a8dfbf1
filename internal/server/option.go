package server

// Option is a functional option for configuring the server.
type Option func(*application)

type application struct {
	config *Config
	cwd    string
}

// WithConfig sets the server configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithWorkdir overrides the working directory used for scope resolution.
func WithWorkdir(dir string) Option {
	return func(a *application) {
		a.cwd = dir
	}
}
