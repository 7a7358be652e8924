package storage

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalBackend writes files to a directory served under a public path
type LocalBackend struct {
	dir        string
	publicPath string
}

// NewLocalBackend creates dir if needed. publicPath is the URL prefix the
// directory is served from, e.g. "/uploads".
func NewLocalBackend(dir, publicPath string) (*LocalBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	publicPath = "/" + strings.Trim(publicPath, "/")
	return &LocalBackend{dir: dir, publicPath: publicPath}, nil
}

func (b *LocalBackend) Name() string { return ModeLocal }

// PublicPath is the URL prefix stored files are reachable under
func (b *LocalBackend) PublicPath() string { return b.publicPath }

func (b *LocalBackend) Put(ctx context.Context, name, contentType string, data []byte) (*Object, error) {
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." {
		return nil, fmt.Errorf("invalid file name")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := filepath.Join(b.dir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", target, err)
	}

	return &Object{
		URL:      path.Join(b.publicPath, name),
		PublicID: name,
		Format:   formatOf(name),
		Bytes:    int64(len(data)),
		MimeType: contentType,
	}, nil
}

// Handler serves stored files under the public path
func (b *LocalBackend) Handler() http.Handler {
	return http.StripPrefix(b.publicPath+"/", http.FileServer(noDirListing{http.Dir(b.dir)}))
}

// noDirListing hides directory indexes from the static handler
type noDirListing struct {
	fs http.FileSystem
}

func (n noDirListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if stat.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
