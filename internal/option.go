package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	root    string
	port    int
	clean   bool
	docs    []string
	version string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithRoot sets the project directory site paths are resolved against.
func WithRoot(root string) Option {
	return func(a *application) {
		a.root = root
	}
}

// WithPort overrides the configured HTTP port when non-zero.
func WithPort(port int) Option {
	return func(a *application) {
		a.port = port
	}
}

// WithClean removes the output tree before a build.
func WithClean(clean bool) Option {
	return func(a *application) {
		a.clean = clean
	}
}

// WithDocuments restricts a build to the given document paths.
func WithDocuments(docs []string) Option {
	return func(a *application) {
		a.docs = docs
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}
