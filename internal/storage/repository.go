package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"led-frame-merger/internal/model"
)

const maxConcurrentLoads = 4

// FileRepository reads and writes device configuration files.
type FileRepository struct{}

func NewFileRepository() *FileRepository {
	return &FileRepository{}
}

func (r *FileRepository) Load(ctx context.Context, path string) (model.Configuration, error) {
	if err := ctx.Err(); err != nil {
		return model.Configuration{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Configuration{}, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := model.DecodeConfiguration(b)
	if err != nil {
		return model.Configuration{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// LoadAll loads paths concurrently. Results are in the order of paths.
func (r *FileRepository) LoadAll(ctx context.Context, paths []string) ([]model.Configuration, error) {
	out := make([]model.Configuration, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			cfg, err := r.Load(ctx, p)
			if err != nil {
				return err
			}
			out[i] = cfg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *FileRepository) Save(ctx context.Context, cfg model.Configuration, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := model.EncodeConfiguration(cfg)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
