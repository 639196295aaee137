package config

import "flag"

// Flags holds command-line overrides. Zero values leave the config untouched.
type Flags struct {
	ConfigPath string
	Debug      bool
	Viewer     string
	Store      string
}

// RegisterFlags binds the override flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Viewer, "viewer", "", "Serve the obstacle viewer on this address")
	fs.StringVar(&f.Store, "store", "", "Tile store driver override (none, file, postgres)")
	return f
}

// ApplyFlags applies CLI flag overrides to the config.
func ApplyFlags(cfg *Config, f *Flags) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Viewer != "" {
		cfg.Viewer.Enabled = true
		cfg.Viewer.ListenAddr = f.Viewer
	}
	if f.Store != "" {
		cfg.Store.Driver = f.Store
	}
}
