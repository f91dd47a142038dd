package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aceeric/layerimport/cmd/subcmd"
	"github.com/aceeric/layerimport/impl/config"
	"github.com/aceeric/layerimport/impl/globals"
)

// set by the build
var (
	buildVer string
	buildDtm string
)

func main() {
	os.Exit(realMain())
}

// realMain runs the sub-command from the command line and returns the process
// exit code.
func realMain() int {
	command, err := getCfg()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if command == "" {
		// no sub-command: the parser has displayed help
		return 0
	}
	if err := globals.ConfigureLogging(config.GetLogLevel(), config.GetLogFile()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	ctx := context.Background()
	switch command {
	case "import":
		err = subcmd.Import(ctx)
	case "tags":
		err = subcmd.Tags()
	case "remove":
		err = subcmd.Remove()
	case "copy":
		err = subcmd.Copy()
	case "list":
		err = subcmd.List()
	case "watch":
		err = subcmd.Watch(ctx)
	case "serve":
		err = subcmd.Serve(buildVer, buildDtm)
	case "version":
		fmt.Printf("layerimport version: %s build date: %s\n", buildVer, buildDtm)
	default:
		err = fmt.Errorf("unknown command: %q", command)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
