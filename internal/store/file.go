package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/speakboard/internal/types"
	"github.com/ginjaninja78/speakboard/pkg/utils"
)

const (
	manifestName    = "library.yaml"
	blobDir         = "blobs"
	manifestVersion = 1
)

// File stores the library as a YAML manifest plus one file per blob:
//
//	<dir>/library.yaml
//	<dir>/blobs/<id>.bin        icon or folder image
//	<dir>/blobs/<id>.audio.bin  recorded audio
type File struct {
	dir string
	log *slog.Logger
}

// NewFile creates a file store rooted at dir.
func NewFile(dir string, logger *slog.Logger) *File {
	return &File{dir: dir, log: logger.With("component", "file_store")}
}

type manifest struct {
	Version int           `yaml:"version"`
	Folders []folderEntry `yaml:"folders"`
}

type folderEntry struct {
	ID        string      `yaml:"id"`
	Name      string      `yaml:"name"`
	IsDefault bool        `yaml:"is_default,omitempty"`
	Image     string      `yaml:"image,omitempty"`
	Icons     []iconEntry `yaml:"icons"`
}

type iconEntry struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Image       string `yaml:"image,omitempty"`
	Audio       string `yaml:"audio,omitempty"`
	QuickAccess bool   `yaml:"quick_access,omitempty"`
}

// Load reads the manifest and its blobs. A missing manifest is an empty
// library.
func (s *File) Load(ctx context.Context) ([]*types.Folder, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, manifestName))
	if errors.Is(err, fs.ErrNotExist) {
		s.log.InfoContext(ctx, "no library manifest, starting empty", slog.String("dir", s.dir))
		return []*types.Folder{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read library manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode library manifest: %w", err)
	}

	folders := make([]*types.Folder, 0, len(m.Folders))
	for _, fe := range m.Folders {
		id, err := uuid.Parse(fe.ID)
		if err != nil {
			return nil, fmt.Errorf("folder %q: invalid id: %w", fe.Name, err)
		}
		image, err := s.readBlob(fe.Image)
		if err != nil {
			return nil, err
		}

		f := &types.Folder{ID: id, Name: fe.Name, IsDefault: fe.IsDefault, Image: image, Icons: make([]types.Icon, 0, len(fe.Icons))}
		for _, ie := range fe.Icons {
			iconID, err := uuid.Parse(ie.ID)
			if err != nil {
				return nil, fmt.Errorf("icon %q: invalid id: %w", ie.Title, err)
			}
			img, err := s.readBlob(ie.Image)
			if err != nil {
				return nil, err
			}
			audio, err := s.readBlob(ie.Audio)
			if err != nil {
				return nil, err
			}
			f.Icons = append(f.Icons, types.Icon{ID: iconID, Title: ie.Title, Image: img, Audio: audio, QuickAccess: ie.QuickAccess})
		}
		folders = append(folders, f)
	}

	s.log.DebugContext(ctx, "library loaded", slog.Int("folders", len(folders)))
	return folders, nil
}

// Save writes new blobs, replaces the manifest atomically, then removes
// blobs the manifest no longer references.
func (s *File) Save(ctx context.Context, folders []*types.Folder) error {
	if err := os.MkdirAll(filepath.Join(s.dir, blobDir), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	m := manifest{Version: manifestVersion, Folders: make([]folderEntry, 0, len(folders))}
	keep := make(map[string]bool)

	var err error
	for _, f := range folders {
		fe := folderEntry{ID: f.ID.String(), Name: f.Name, IsDefault: f.IsDefault, Icons: make([]iconEntry, 0, len(f.Icons))}
		if fe.Image, err = s.writeBlob(f.ID.String()+".bin", f.Image, keep); err != nil {
			return err
		}
		for _, icon := range f.Icons {
			ie := iconEntry{ID: icon.ID.String(), Title: icon.Title, QuickAccess: icon.QuickAccess}
			if ie.Image, err = s.writeBlob(icon.ID.String()+".bin", icon.Image, keep); err != nil {
				return err
			}
			if ie.Audio, err = s.writeBlob(icon.ID.String()+".audio.bin", icon.Audio, keep); err != nil {
				return err
			}
			fe.Icons = append(fe.Icons, ie)
		}
		m.Folders = append(m.Folders, fe)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode library manifest: %w", err)
	}
	if err := utils.WriteFileAtomic(filepath.Join(s.dir, manifestName), data, 0o644); err != nil {
		return err
	}

	removed := s.collectGarbage(keep)
	s.log.InfoContext(ctx, "library saved",
		slog.Int("folders", len(folders)),
		slog.Int("blobs_removed", removed))
	return nil
}

// writeBlob stores data under blobs/name unless it is already there and
// returns the manifest-relative path. Blobs are immutable once written.
func (s *File) writeBlob(name string, data []byte, keep map[string]bool) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	rel := filepath.ToSlash(filepath.Join(blobDir, name))
	keep[name] = true

	path := filepath.Join(s.dir, blobDir, name)
	if utils.FileExists(path) {
		return rel, nil
	}
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob %s: %w", name, err)
	}
	return rel, nil
}

func (s *File) readBlob(rel string) ([]byte, error) {
	if rel == "" {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", rel, err)
	}
	return data, nil
}

// collectGarbage removes unreferenced blob files. Failures are logged and
// left for the next save.
func (s *File) collectGarbage(keep map[string]bool) int {
	entries, err := os.ReadDir(filepath.Join(s.dir, blobDir))
	if err != nil {
		s.log.Warn("failed to list blobs", slog.String("error", err.Error()))
		return 0
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || keep[e.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, blobDir, e.Name())); err != nil {
			s.log.Warn("failed to remove blob", slog.String("blob", e.Name()), slog.String("error", err.Error()))
			continue
		}
		removed++
	}
	return removed
}
