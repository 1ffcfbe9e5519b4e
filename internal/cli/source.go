package cli

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formstate/internal/logging"
	"github.com/goliatone/go-formstate/pkg/payload"
)

// ErrRecordNotFound is returned by FileSource.Load for ids without a file.
var ErrRecordNotFound = errors.New("cli: record not found")

// FileSource is a session.DataSource over a directory of <id>.json value
// documents. Submitted requests are written to Out.
type FileSource struct {
	Dir string
	Out io.Writer
}

// Load reads <Dir>/<id>.json.
func (f FileSource) Load(ctx context.Context, id int64) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(f.Dir, strconv.FormatInt(id, 10)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrRecordNotFound, "%d", id)
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}
	values, err := decodeValues(data, path)
	if err != nil {
		return nil, err
	}
	logging.Log(ctx, nil, logrus.DebugLevel, "record loaded", logrus.Fields{"record_id": id, "path": path})
	return values, nil
}

// Submit writes req as indented JSON and echoes it back as the result.
func (f FileSource) Submit(ctx context.Context, req payload.Request) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := f.Out
	if out == nil {
		out = os.Stdout
	}
	if err := writeJSON(out, req); err != nil {
		return nil, errors.Wrap(err, "write request")
	}
	logging.Log(ctx, nil, logrus.DebugLevel, "request written", logrus.Fields{"update": req.Data[payload.KeyID] != nil})
	return req, nil
}
