package config

// Merge takes a struct indicating which configuration options have been provided on the command
// line, as well as a configuration struct parsed from the command line which ALSO includes defaults
// that the user didn't specify. For example the default chunk size is 4096 and if you don't specify
// that on the command line - it gets defaulted into the parsed configuration struct. So:
//
//  1. User provided a value: overwrite current config using the user's value
//  2. User did not provide a value, current config is unspecified: use the default in the parsed config
//  3. User did not provide a value, current config is specified: leave the current config untouched
func Merge(fromCmdline FromCmdLine, cfg Configuration) {
	if fromCmdline.LogLevel || config.LogLevel == "" {
		config.LogLevel = cfg.LogLevel
	}
	if fromCmdline.LogFile || config.LogFile == "" {
		config.LogFile = cfg.LogFile
	}
	if fromCmdline.ConfigFile || config.ConfigFile == "" {
		config.ConfigFile = cfg.ConfigFile
	}
	if fromCmdline.StoragePath || config.StoragePath == "" {
		config.StoragePath = cfg.StoragePath
	}
	if fromCmdline.Repo || config.Repo == "" {
		config.Repo = cfg.Repo
	}
	if fromCmdline.Archive || config.Archive == "" {
		config.Archive = cfg.Archive
	}
	if fromCmdline.Mask || config.Mask == "" {
		config.Mask = cfg.Mask
	}
	if fromCmdline.Images || len(config.Images) == 0 {
		config.Images = cfg.Images
	}
	if fromCmdline.FromRepo || config.FromRepo == "" {
		config.FromRepo = cfg.FromRepo
	}
	if fromCmdline.ToRepo || config.ToRepo == "" {
		config.ToRepo = cfg.ToRepo
	}
	if fromCmdline.WatchPath || config.WatchPath == "" {
		config.WatchPath = cfg.WatchPath
	}
	if fromCmdline.Port || config.Port == 0 {
		config.Port = cfg.Port
	}
	if fromCmdline.Metrics || config.Metrics == 0 {
		config.Metrics = cfg.Metrics
	}
	if fromCmdline.ChunkSize || config.ImportConfig.ChunkSize == 0 {
		config.ImportConfig.ChunkSize = cfg.ImportConfig.ChunkSize
	}
	if fromCmdline.Compression || config.ImportConfig.Compression == "" {
		config.ImportConfig.Compression = cfg.ImportConfig.Compression
	}
	if fromCmdline.AtomicWrites || config.ImportConfig.AtomicWrites == nil {
		config.ImportConfig.AtomicWrites = cfg.ImportConfig.AtomicWrites
	}
	if fromCmdline.ListConfig || config.ListConfig == (ListConfig{}) {
		config.ListConfig = cfg.ListConfig
	}
}
