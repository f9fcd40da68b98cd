package main

import (
	"flag"
	"fmt"
	"os"
)

type AppFlags struct {
	GlobalConfigFile string
	Mode             string
	ForceRescan      bool
}

func ParseFlags() AppFlags {
	globalConfigFile := flag.String("config", "", "Path to the global YAML/JSON configuration file. Defaults apply when not set.")
	globalConfigFileAlias := flag.String("c", "", "Alias for -config")

	modeFlag := flag.String("mode", "", "Mode to run the tool: onetime or automated (overrides config file if set)")
	modeFlagAlias := flag.String("m", "", "Alias for -mode")

	forceFlag := flag.Bool("force", false, "Force re-baselining of unchanged files during the scan")

	flag.Parse()

	flags := AppFlags{ForceRescan: *forceFlag}

	if *globalConfigFile != "" {
		flags.GlobalConfigFile = *globalConfigFile
	} else if *globalConfigFileAlias != "" {
		flags.GlobalConfigFile = *globalConfigFileAlias
	}

	if *modeFlag != "" {
		flags.Mode = *modeFlag
	} else if *modeFlagAlias != "" {
		flags.Mode = *modeFlagAlias
	}

	if flags.Mode == "" {
		flags.Mode = "automated"
	}
	if flags.Mode != "onetime" && flags.Mode != "automated" {
		fmt.Fprintf(os.Stderr, "invalid -mode %q: must be onetime or automated\n", flags.Mode)
		os.Exit(2)
	}

	return flags
}
