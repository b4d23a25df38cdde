// trbtool inspects and converts TRB archives from the command line.
//
//	trbtool [-config file] [-version v1|v2] info <file.trb>
//	trbtool symbols <file.trb>
//	trbtool dump [-spew] [-zstd] [-o out] <file.trb>
//	trbtool export [-mesh name | -texture name | -scene level] [-o out] [...]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/toshi_browser/config"
	"github.com/mogaika/toshi_browser/logger"
	"github.com/mogaika/toshi_browser/pack"
	"github.com/mogaika/toshi_browser/pack/trb"
	"github.com/mogaika/toshi_browser/pack/trb/mesh"
	"github.com/mogaika/toshi_browser/pack/trb/txr"
	"github.com/mogaika/toshi_browser/scene"
	"github.com/mogaika/toshi_browser/utils"
	"github.com/mogaika/toshi_browser/utils/gltfutils"
	"github.com/mogaika/toshi_browser/vfs"

	_ "github.com/mogaika/toshi_browser/pack/trb/entity"
	_ "github.com/mogaika/toshi_browser/pack/trb/mat"
	_ "github.com/mogaika/toshi_browser/pack/trb/terrain"
)

type command struct {
	usage string
	run   func(cfg *config.Config, args []string) error
}

var commands = map[string]command{
	"info":    {"print the archive header, sections and symbols as json", cmdInfo},
	"symbols": {"list symbols and the resources decoded from them", cmdSymbols},
	"dump":    {"write every decoded resource", cmdDump},
	"export":  {"export a model, texture or level", cmdExport},
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <command> [command flags] ...\n\ncommands:\n", filepath.Base(os.Args[0]))
	for _, name := range []string{"info", "symbols", "dump", "export"} {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", name, commands[name].usage)
	}
	fmt.Fprintln(os.Stderr, "\nflags:")
	flag.PrintDefaults()
}

func loadArchive(fileName string) (*trb.LoadContext, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	ctx, _, err := trb.Load(filepath.Base(fileName), data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load %s", fileName)
	}
	return ctx, nil
}

func singleArchive(fs *flag.FlagSet) (*trb.LoadContext, error) {
	if fs.NArg() != 1 {
		return nil, errors.Errorf("%s: expected one archive path", fs.Name())
	}
	return loadArchive(fs.Arg(0))
}

// openOutput returns stdout for an empty path or "-".
func openOutput(out string) (io.WriteCloser, error) {
	if out == "" || out == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(out)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func cmdInfo(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(args)

	ctx, err := singleArchive(fs)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(ctx.Info())
}

func cmdSymbols(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("symbols", flag.ExitOnError)
	fs.Parse(args)

	ctx, err := singleArchive(fs)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKEY\tNAME\tSECTION\tOFFSET\tRESOURCE")
	for _, si := range ctx.Info().Symbols {
		res := "-"
		if si.Decoded {
			res = si.Resource
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t0x%x\t%s\n", si.Index, si.Key, si.Name, si.Section, si.Offset, res)
	}
	return tw.Flush()
}

func cmdDump(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	useSpew := fs.Bool("spew", false, "Write a go-spew dump instead of json")
	useZstd := fs.Bool("zstd", false, "Compress the output with zstd")
	out := fs.String("o", "", "Output file, stdout by default")
	fs.Parse(args)

	ctx, err := singleArchive(fs)
	if err != nil {
		return err
	}

	w, err := openOutput(*out)
	if err != nil {
		return err
	}
	defer w.Close()

	if *useSpew && !*useZstd {
		utils.FDump(w, ctx.Snapshot())
		return nil
	}

	var data []byte
	if *useSpew {
		data = []byte(utils.SDump(ctx.Snapshot()))
	} else if data, err = json.MarshalIndent(ctx.Snapshot(), "", "  "); err != nil {
		return err
	}
	if *useZstd {
		if data, err = utils.Compress(data); err != nil {
			return err
		}
	}
	_, err = w.Write(data)
	return err
}

func exportTexture(ctx *trb.LoadContext, name string, level int, webp bool, w io.Writer) error {
	t, ok := txr.FindTexture(ctx, name)
	if !ok {
		return errors.Errorf("texture %q not found in %s", name, ctx.Name)
	}
	if webp {
		return t.EncodeWebP(w, level)
	}
	return t.EncodePNG(w, level)
}

func exportModel(ctx *trb.LoadContext, name string, w io.Writer) error {
	m, ok := mesh.FindMesh(ctx, name)
	if !ok {
		return errors.Errorf("model %q not found in %s", name, ctx.Name)
	}
	doc, err := m.ExportGLTFDefault(ctx)
	if err != nil {
		return err
	}
	return gltfutils.ExportBinary(w, doc)
}

func exportScene(cfg *config.Config, level string, w io.Writer) error {
	if cfg.Server.DataDir == "" {
		return errors.New("export -scene requires -dir")
	}
	cache := pack.NewInstanceCache(vfs.NewDirectoryDriver(cfg.Server.DataDir))
	s, err := scene.NewLoader(cache, cfg.Scene).LoadLevel(level)
	if err != nil {
		return err
	}
	for _, missing := range s.Missing {
		logger.Warn("Model not found", zap.String("name", missing))
	}
	doc, err := s.ExportGLTF()
	if err != nil {
		return err
	}
	return gltfutils.ExportBinary(w, doc)
}

func cmdExport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	meshName := fs.String("mesh", "", "Model to export as glb")
	textureName := fs.String("texture", "", "Texture to export as png")
	sceneLevel := fs.String("scene", "", "Level directory, relative to -dir, to export as glb")
	mipLevel := fs.Int("mip", 0, "Texture mip level")
	webp := fs.Bool("webp", false, "Encode the texture as webp")
	out := fs.String("o", "", "Output file, stdout by default")
	fs.Parse(args)

	w, err := openOutput(*out)
	if err != nil {
		return err
	}
	defer w.Close()

	if *sceneLevel != "" {
		return exportScene(cfg, *sceneLevel, w)
	}

	ctx, err := singleArchive(fs)
	if err != nil {
		return err
	}
	switch {
	case *meshName != "":
		return exportModel(ctx, *meshName, w)
	case *textureName != "":
		return exportTexture(ctx, *textureName, *mipLevel, *webp, w)
	}
	return errors.New("export: one of -mesh, -texture or -scene is required")
}

func main() {
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// the console belongs to command output, logs go to stderr
	if err := logger.InitWithFileConfig(cfg.Log.Level, logger.FileConfig{Path: cfg.Log.File}, true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[strings.ToLower(flag.Arg(0))]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}
	if err := cmd.run(cfg, flag.Args()[1:]); err != nil {
		logger.Error("Command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
		os.Exit(1)
	}
}
