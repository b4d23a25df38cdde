package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mogaika/toshi_browser/config"
	"github.com/mogaika/toshi_browser/logger"
	"github.com/mogaika/toshi_browser/vfs"
	"github.com/mogaika/toshi_browser/web"

	_ "github.com/mogaika/toshi_browser/pack/trb/entity"
	_ "github.com/mogaika/toshi_browser/pack/trb/mat"
	_ "github.com/mogaika/toshi_browser/pack/trb/mesh"
	_ "github.com/mogaika/toshi_browser/pack/trb/terrain"
	_ "github.com/mogaika/toshi_browser/pack/trb/txr"
)

func logFileConfig(c config.LogConfig) logger.FileConfig {
	return logger.FileConfig{
		Path:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

func main() {
	flag.Parse()

	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := logger.InitWithFileConfig(cfg.Log.Level, logFileConfig(cfg.Log), true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Server.DataDir == "" {
		flag.PrintDefaults()
		return
	}

	if err := web.StartServer(vfs.NewDirectoryDriver(cfg.Server.DataDir), cfg); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}
