package trb

import (
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/toshi_browser/logger"
	"github.com/mogaika/toshi_browser/pack"
	"github.com/mogaika/toshi_browser/utils"
)

func loadArchiveFile(src utils.ResourceSource, r *io.SectionReader) (interface{}, error) {
	data := make([]byte, r.Size())
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Wrapf(err, "read %q", src.Name())
	}
	ctx, res, err := Load(src.Name(), data)
	if err != nil {
		logger.Log.Warn("archive parse failed", zap.String("file", src.Name()), zap.Error(err))
		return nil, err
	}
	logger.Log.Debug("archive loaded",
		zap.String("file", src.Name()), zap.String("format", ctx.Profile().Name),
		zap.Int("symbols", len(ctx.Archive().Symbols)), zap.Int("resources", len(res)))
	return ctx, nil
}

func init() {
	pack.SetHandler(".TRB", loadArchiveFile)
}
