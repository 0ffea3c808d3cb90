// Package watcher keeps the dataset catalog in step with CSV files dropped
// into the upload directory by hand.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/RichardoC/csvchat/internal/dataset"
	"github.com/RichardoC/csvchat/internal/db"
	"github.com/RichardoC/csvchat/internal/models"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Catalog is the part of the dataset store the watcher writes to.
type Catalog interface {
	SaveDataset(ctx context.Context, rec *models.DatasetRecord) error
	DeleteDatasetByPath(ctx context.Context, path string) error
}

type Watcher struct {
	dir     string
	catalog Catalog
	logger  *zap.Logger
	fsw     *fsnotify.Watcher

	// OnChange, when set, is called after every catalog update.
	OnChange func(path string, removed bool)
}

func New(dir string, catalog Catalog, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{dir: dir, catalog: catalog, logger: logger, fsw: fsw}, nil
}

// Scan registers every CSV already present in the directory.
func (w *Watcher) Scan(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !isCSV(e.Name()) {
			continue
		}
		w.register(ctx, filepath.Join(w.dir, e.Name()))
	}
	return nil
}

// Run processes file events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("Watching upload directory", zap.String("dir", w.dir))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !isCSV(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				w.register(ctx, event.Name)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.unregister(ctx, event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// register catalogues path if it parses. Files still being written simply
// fail to parse and are picked up on a later write event.
func (w *Watcher) register(ctx context.Context, path string) {
	d, err := dataset.Load(path)
	if err != nil {
		w.logger.Debug("Skipping unreadable CSV", zap.String("path", path), zap.Error(err))
		return
	}
	rec := &models.DatasetRecord{
		Filename: filepath.Base(path),
		Path:     path,
		Rows:     d.NumRows(),
		Columns:  d.NumColumns(),
		Source:   models.SourceWatch,
	}
	if err := w.catalog.SaveDataset(ctx, rec); err != nil {
		w.logger.Error("Failed to catalog dataset", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("Dataset registered",
		zap.String("id", rec.ID),
		zap.String("path", path),
		zap.Int("rows", rec.Rows))
	if w.OnChange != nil {
		w.OnChange(path, false)
	}
}

func (w *Watcher) unregister(ctx context.Context, path string) {
	err := w.catalog.DeleteDatasetByPath(ctx, path)
	if errors.Is(err, db.ErrDatasetNotFound) {
		return
	}
	if err != nil {
		w.logger.Error("Failed to drop dataset", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("Dataset removed", zap.String("path", path))
	if w.OnChange != nil {
		w.OnChange(path, true)
	}
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}
