package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ESOAnnouncements/internal/domain"
	"ESOAnnouncements/internal/ports"
)

// FilePublisher writes artifacts under a root directory and reads templates.
type FilePublisher struct {
	root   string
	logger *slog.Logger
}

var (
	_ ports.Publisher      = (*FilePublisher)(nil)
	_ ports.TemplateReader = (*FilePublisher)(nil)
)

// NewFilePublisher resolves relative paths against root; an empty root means
// the working directory.
func NewFilePublisher(root string, log *slog.Logger) *FilePublisher {
	return &FilePublisher{root: root, logger: log}
}

// ReadTemplate returns the whole file as text.
func (p *FilePublisher) ReadTemplate(path string) (string, error) {
	data, err := os.ReadFile(p.resolve(path))
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	return string(data), nil
}

// Publish stages every artifact in a temp file beside its target and renames
// them into place only after all of them were written. On a staging failure
// the temps are removed and existing files stay untouched.
func (p *FilePublisher) Publish(ctx context.Context, artifacts []domain.Artifact) error {
	staged := make([]string, 0, len(artifacts))
	cleanup := func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}

	for _, artifact := range artifacts {
		if err := ctx.Err(); err != nil {
			cleanup()
			return err
		}

		tmp, err := p.stage(artifact)
		if err != nil {
			cleanup()
			return err
		}
		staged = append(staged, tmp)
	}

	var errs []error
	for i, artifact := range artifacts {
		target := p.resolve(artifact.Path)
		if err := os.Rename(staged[i], target); err != nil {
			errs = append(errs, fmt.Errorf("replace %s: %w", target, err))
			_ = os.Remove(staged[i])
			continue
		}
		p.debug("artifact written", "path", target, "bytes", len(artifact.Data))
	}
	return errors.Join(errs...)
}

func (p *FilePublisher) stage(artifact domain.Artifact) (string, error) {
	target := p.resolve(artifact.Path)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dir %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", target, err)
	}
	if _, err := f.Write(artifact.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("stage %s: %w", target, err)
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("stage %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("stage %s: %w", target, err)
	}
	return f.Name(), nil
}

func (p *FilePublisher) resolve(path string) string {
	if p.root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.root, path)
}

func (p *FilePublisher) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
