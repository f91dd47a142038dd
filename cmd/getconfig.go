package main

import (
	"github.com/aceeric/layerimport/impl/cmdline"
	"github.com/aceeric/layerimport/impl/config"
)

// getCfg calls the command line parser to parse the command line. If one of the command line
// args was '--config-file' then the function calls the config loader to load that config file
// into the global configuration and then overwrites it with any values given on the command
// line. If '--config-file' was NOT provided, then the config from the parsed cmdline is used in
// its entirety (which has all the defaults, like chunk size, port, etc.)
//
// Some configs can ONLY be provided via the config file, e.g.: server TLS.
//
// The sub-command specified on the command line (import, serve, etc.) is returned in the first
// return value.
func getCfg() (string, error) {
	fromCmdline, cfg, err := cmdline.Parse()
	if err != nil {
		return "", err
	}
	if fromCmdline.ConfigFile {
		if err := config.Load(cfg.ConfigFile); err != nil {
			return "", err
		}
		config.Merge(fromCmdline, cfg)
	} else {
		config.Set(cfg)
	}
	return fromCmdline.Command, nil
}
