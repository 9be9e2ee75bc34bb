package internal

import "github.com/starford/ansuz/internal/embedding"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	embedder embedding.Embedder
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithEmbedder overrides the default Ollama embedder, mainly for tests.
func WithEmbedder(e embedding.Embedder) Option {
	return func(a *application) {
		a.embedder = e
	}
}
