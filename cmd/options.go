package cmd

// Options holds the shared command-line options.
type Options struct {
	ConfigPath string
	DryRun     bool
	Archive    bool
	Verbosity  int
}

// Option is a functional option for configuring Options.
type Option func(*Options)

// NewOptions creates Options with defaults and applies any overrides.
func NewOptions(opts ...Option) *Options {
	o := &Options{
		ConfigPath: "config.yaml",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithConfigPath sets the configuration file path.
func WithConfigPath(path string) Option {
	return func(o *Options) {
		o.ConfigPath = path
	}
}

// WithDryRun disables emails, comments and archiving side effects.
func WithDryRun(dryRun bool) Option {
	return func(o *Options) {
		o.DryRun = dryRun
	}
}

// WithArchive forces the archive pass even when auto-archiving is
// disabled in the configuration.
func WithArchive(archive bool) Option {
	return func(o *Options) {
		o.Archive = archive
	}
}

// WithVerbosity sets the verbosity level.
func WithVerbosity(v int) Option {
	return func(o *Options) {
		o.Verbosity = v
	}
}
