// Package artifacts names and verifies the files one generation job produces.
//
// Every path is namespaced by the job base name so concurrent jobs sharing an
// output directory never collide. Intermediates used only while compositing
// carry a temp_ prefix.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"moodcast/config"
	"moodcast/types"
)

// ErrMissingArtifact is matched by *MissingArtifactError
var ErrMissingArtifact = errors.New("missing artifact")

// MissingArtifactError names the first expected file that is absent or empty
type MissingArtifactError struct {
	Kind types.ArtifactKind
	Path string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("missing %s artifact: %s", e.Kind, e.Path)
}

func (e *MissingArtifactError) Is(target error) bool { return target == ErrMissingArtifact }

// Store resolves artifact paths for one job
type Store struct {
	dir  string
	base string
}

// NewStore creates a store rooted at dir for the job base name. The base name
// must not contain path separators.
func NewStore(dir, base string) (*Store, error) {
	if base == "" {
		return nil, errors.New("empty job base name")
	}
	if strings.ContainsAny(base, `/\`) || base == "." || base == ".." {
		return nil, fmt.Errorf("invalid job base name %q", base)
	}
	if dir == "" {
		dir = config.OutputDir
	}
	return &Store{dir: dir, base: base}, nil
}

// Dir returns the job directory
func (s *Store) Dir() string { return s.dir }

// Base returns the job base name
func (s *Store) Base() string { return s.base }

// EnsureDir creates the job directory
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	return nil
}

// ImagePath returns the path of image i (1-based)
func (s *Store) ImagePath(i int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_image_%d.png", s.base, i))
}

func (s *Store) SpeechPath() string {
	return filepath.Join(s.dir, s.base+"_speech.wav")
}

func (s *Store) MusicPath() string {
	return filepath.Join(s.dir, s.base+"_music.wav")
}

// OutputPath returns the final video path
func (s *Store) OutputPath() string {
	return filepath.Join(s.dir, s.base+config.OutputExtension)
}

// TempPath returns the path of an intermediate, e.g. TempPath("mix.wav")
func (s *Store) TempPath(name string) string {
	return filepath.Join(s.dir, fmt.Sprintf("temp_%s_%s", s.base, name))
}

// ImagePaths returns the paths of images 1..n
func (s *Store) ImagePaths(n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = s.ImagePath(i + 1)
	}
	return paths
}

// Verify checks that every artifact exists and is non-empty. The first
// missing file is reported.
func Verify(arts []types.MediaArtifact) error {
	for _, a := range arts {
		info, err := os.Stat(a.Path)
		if err != nil || info.IsDir() || info.Size() == 0 {
			return &MissingArtifactError{Kind: a.Kind, Path: a.Path}
		}
	}
	return nil
}

// RetentionPolicy decides what happens to adapter outputs after a
// successful composition
type RetentionPolicy string

const (
	// Retain keeps images and audio next to the video for diagnostics
	Retain RetentionPolicy = "retain"
	// Cleanup removes adapter outputs once the video exists
	Cleanup RetentionPolicy = "cleanup"
)

// ParseRetentionPolicy maps a config value onto a policy; unknown values retain
func ParseRetentionPolicy(v string) RetentionPolicy {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "cleanup", "delete", "false", "0", "no":
		return Cleanup
	default:
		return Retain
	}
}

// Apply enforces the policy over arts. Failures are logged, not returned:
// the video is already complete.
func (p RetentionPolicy) Apply(arts []types.MediaArtifact, logger *zap.Logger) {
	if p != Cleanup {
		return
	}
	for _, a := range arts {
		if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove artifact", zap.String("path", a.Path), zap.Error(err))
		}
	}
}

// RemoveTemps deletes every temp_{base}_* file in the job directory
func (s *Store) RemoveTemps() error {
	matches, err := filepath.Glob(filepath.Join(s.dir, "temp_"+globEscape(s.base)+"_*"))
	if err != nil {
		return err
	}
	var errs []error
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`)
	return r.Replace(s)
}
