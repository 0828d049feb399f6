package proof

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/segyhp/loanlink/internal/config"
	customError "github.com/segyhp/loanlink/pkg/errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxExtLen = 10

// LocalStore keeps payment proofs as files in one directory. References are
// opaque file names; callers store them verbatim.
type LocalStore struct {
	dir      string
	maxBytes int64
	log      *logrus.Logger
}

func NewLocalStore(cfg config.UploadsConfig, log *logrus.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &LocalStore{dir: cfg.Dir, maxBytes: cfg.MaxBytes, log: log}, nil
}

// Save writes the content of r and returns its reference. filename only
// contributes its extension.
func (s *LocalStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref := uuid.NewString() + extension(filename)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	defer os.Remove(tmp.Name())

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return "", customError.WrapInvalidRequest(fmt.Sprintf("proof must not exceed %d bytes", s.maxBytes))
	}
	if n == 0 {
		return "", customError.WrapInvalidRequest("proof file is empty")
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, ref)); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}

	s.log.WithFields(logrus.Fields{"reference": ref, "bytes": n}).Info("proof stored")
	return ref, nil
}

// Open returns the stored proof for ref.
func (s *LocalStore) Open(ref string) (*os.File, error) {
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") {
		return nil, customError.WrapInvalidRequest("invalid proof reference")
	}
	return os.Open(filepath.Join(s.dir, ref))
}

func extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > maxExtLen {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
