package file

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/eric2788/webmrec/internal/media"
	"github.com/eric2788/webmrec/internal/modules/config"
	"github.com/eric2788/webmrec/pkg/signeddownload"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("service", "file")

var ErrFileNotFound = fmt.Errorf("file not found")
var ErrInvalidFilePath = fmt.Errorf("invalid file path")
var ErrAccessDenied = fmt.Errorf("access denied")
var ErrIsDirectory = fmt.Errorf("path is a directory")
var ErrNotRecording = fmt.Errorf("only webm recordings are served")

// Service exposes the recordings saved in the output directory.
type Service struct {
	cfg    *config.Config
	signer *signeddownload.Client
}

type Entry struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time"`
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg:    cfg,
		signer: signeddownload.NewClient([]byte(cfg.JwtSecret)),
	}
}

// List returns the recordings, newest first. A missing output directory
// lists as empty.
func (s *Service) List() ([]*Entry, error) {
	entries, err := os.ReadDir(s.cfg.OutputDir)
	if os.IsNotExist(err) {
		return []*Entry{}, nil
	} else if err != nil {
		return nil, err
	}

	files := make([]*Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isRecording(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, &Entry{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime().Unix(),
		})
	}
	slices.SortFunc(files, func(a, b *Entry) int {
		if a.ModTime != b.ModTime {
			return int(b.ModTime - a.ModTime)
		}
		return strings.Compare(a.Name, b.Name)
	})
	return files, nil
}

// Resolve validates name and returns the absolute path of the recording.
func (s *Service) Resolve(name string) (string, error) {
	if !isRecording(name) {
		return "", ErrNotRecording
	}
	fullPath, err := s.validatePath(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(fullPath)
	if os.IsNotExist(err) {
		return "", ErrFileNotFound
	} else if err != nil {
		return "", err
	} else if info.IsDir() {
		return "", ErrIsDirectory
	}
	return fullPath, nil
}

func (s *Service) Delete(name string) error {
	fullPath, err := s.Resolve(name)
	if err != nil {
		return err
	}
	logger.Infof("deleting recording %s", name)
	return os.Remove(fullPath)
}

// Presign returns a token granting download of name until ttl passes.
func (s *Service) Presign(name string, ttl time.Duration) (string, error) {
	if _, err := s.Resolve(name); err != nil {
		return "", err
	}
	return s.signer.GenerateDownloadToken("", name, time.Now().Add(ttl))
}

// ResolveToken resolves a token made by Presign.
func (s *Service) ResolveToken(token string) (string, error) {
	claims, err := s.signer.ParseDownloadToken(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAccessDenied, err)
	} else if claims.LinkID != "" {
		return "", ErrAccessDenied
	}
	return s.Resolve(claims.FileName)
}

func isRecording(name string) bool {
	return strings.EqualFold(filepath.Ext(name), "."+media.ExtWebM)
}

// validatePath keeps name inside the output directory, which is flat.
func (s *Service) validatePath(name string) (string, error) {
	baseAbs, err := filepath.Abs(s.cfg.OutputDir)
	if err != nil {
		logger.Errorf("invalid base path for %s: %v", s.cfg.OutputDir, err)
		return "", ErrInvalidFilePath
	}

	fullPathAbs, err := filepath.Abs(filepath.Join(baseAbs, name))
	if err != nil {
		logger.Errorf("invalid path for %s: %v", name, err)
		return "", ErrInvalidFilePath
	}

	if filepath.Dir(fullPathAbs) != baseAbs {
		logger.Warnf("path traversal detected: %s", name)
		return "", ErrAccessDenied
	}

	return fullPathAbs, nil
}
