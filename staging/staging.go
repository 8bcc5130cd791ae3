package staging

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitmark-inc/artist-portfolio/log"
)

var ErrNoFile = errors.New("no file uploaded")

// Stager keeps uploaded files on local disk until they are forwarded to a media host
type Stager struct {
	dir string
}

// New returns a stager writing into dir. The directory is created when missing.
func New(dir string) (*Stager, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("fail to create staging dir: %w", err)
	}

	return &Stager{dir: dir}, nil
}

// File is a staged copy of an uploaded file
type File struct {
	Path     string
	Filename string
	MimeType string
	Size     int64
}

// Stage copies an uploaded file into the staging dir under a random name
func (s *Stager) Stage(header *multipart.FileHeader) (*File, error) {
	if header == nil {
		return nil, ErrNoFile
	}

	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("fail to open uploaded file: %w", err)
	}
	defer src.Close()

	path := filepath.Join(s.dir, uuid.NewString()+strings.ToLower(filepath.Ext(header.Filename)))
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("fail to create staged file: %w", err)
	}

	f := &File{
		Path:     path,
		Filename: filepath.Base(header.Filename),
	}

	f.Size, err = io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		f.Release()
		return nil, fmt.Errorf("fail to write staged file: %w", err)
	}

	mime, err := mimetype.DetectFile(path)
	if err != nil {
		f.Release()
		return nil, fmt.Errorf("fail to detect mime type: %w", err)
	}
	f.MimeType = mime.String()

	log.Debug("file staged",
		zap.String("path", f.Path),
		zap.String("mimeType", f.MimeType),
		zap.Int64("size", f.Size),
		log.SourceStaging)

	return f, nil
}

// With stages an uploaded file, runs fn with it and removes the staged copy
// whatever fn returns.
func (s *Stager) With(header *multipart.FileHeader, fn func(f *File) error) error {
	f, err := s.Stage(header)
	if err != nil {
		return err
	}
	defer f.Release()

	return fn(f)
}

// Release removes the staged copy. A failed removal is only logged.
func (f *File) Release() {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("fail to remove staged file", zap.String("path", f.Path), zap.Error(err), log.SourceStaging)
	}
}

// IsImage reports whether the sniffed mime type is an image
func (f *File) IsImage() bool {
	return strings.HasPrefix(f.MimeType, "image/")
}
