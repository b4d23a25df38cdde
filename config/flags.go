package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagAddr     = flag.String("i", "", "Address of server")
	flagDir      = flag.String("dir", "", "Path to directory with game data")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile  = flag.String("log", "", "Log file path")
	flagVersion  = flag.String("version", "", "Archive format: auto, v1 or v2")
	flagEncoding = flag.String("encoding", "", "Charmap used for archive strings")
)

func ConfigPath() string {
	return *flagConfig
}

func applyFlags(cfg *Config) {
	if *flagAddr != "" {
		cfg.Server.Addr = *flagAddr
	}
	if *flagDir != "" {
		cfg.Server.DataDir = *flagDir
	}
	if *flagDebug {
		cfg.Log.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Log.File = *flagLogFile
	}
	if *flagVersion != "" {
		cfg.Format.Version = *flagVersion
	}
	if *flagEncoding != "" {
		cfg.Format.Encoding = *flagEncoding
	}
}
