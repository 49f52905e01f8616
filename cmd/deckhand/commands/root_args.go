package commands

type RootArgs struct {
	logLevel     *string
	logFormat    *string
	configDir    *string
	manifest     *string
	lockfile     *string
	cachePath    *string
	cacheAge     *int
	cacheEnabled *bool
	debug        *bool
}

func NewRootArgs() *RootArgs {
	return &RootArgs{
		logLevel:     new(string),
		logFormat:    new(string),
		configDir:    new(string),
		manifest:     new(string),
		lockfile:     new(string),
		cachePath:    new(string),
		cacheAge:     new(int),
		cacheEnabled: new(bool),
		debug:        new(bool),
	}
}

func (a *RootArgs) GetLogLevel() string {
	return *a.logLevel
}

func (a *RootArgs) GetLogFormat() string {
	return *a.logFormat
}

func (a *RootArgs) GetConfigDir() string {
	return *a.configDir
}

func (a *RootArgs) GetDebug() bool {
	return *a.debug
}
