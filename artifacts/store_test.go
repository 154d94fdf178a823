package artifacts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"moodcast/types"
)

func TestStorePaths(t *testing.T) {
	s, err := NewStore("out", "calm_ab12cd34")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"image", s.ImagePath(2), filepath.Join("out", "calm_ab12cd34_image_2.png")},
		{"speech", s.SpeechPath(), filepath.Join("out", "calm_ab12cd34_speech.wav")},
		{"music", s.MusicPath(), filepath.Join("out", "calm_ab12cd34_music.wav")},
		{"output", s.OutputPath(), filepath.Join("out", "calm_ab12cd34.mp4")},
		{"temp", s.TempPath("mix.wav"), filepath.Join("out", "temp_calm_ab12cd34_mix.wav")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q; want %q", tt.got, tt.want)
			}
		})
	}

	if paths := s.ImagePaths(3); len(paths) != 3 || paths[0] != s.ImagePath(1) || paths[2] != s.ImagePath(3) {
		t.Errorf("ImagePaths(3) = %v", paths)
	}
}

func TestNewStoreRejectsBadBase(t *testing.T) {
	for _, base := range []string{"", "..", "a/b", `a\b`} {
		if _, err := NewStore("out", base); err == nil {
			t.Errorf("NewStore(%q) should fail", base)
		}
	}
}

func TestDistinctJobsNeverShareFiles(t *testing.T) {
	a, _ := NewStore("out", "joy_1")
	b, _ := NewStore("out", "joy_2")
	if a.SpeechPath() == b.SpeechPath() || a.ImagePath(1) == b.ImagePath(1) || a.TempPath("mix.wav") == b.TempPath("mix.wav") {
		t.Fatal("two job base names resolved to the same path")
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore(dir, "job")

	write := func(path string, data string) {
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(s.ImagePath(1), "png")
	write(s.SpeechPath(), "wav")
	write(s.MusicPath(), "")

	arts := []types.MediaArtifact{
		{Kind: types.ArtifactImage, Path: s.ImagePath(1)},
		{Kind: types.ArtifactSpeech, Path: s.SpeechPath()},
	}
	if err := Verify(arts); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	withEmpty := append(arts, types.MediaArtifact{Kind: types.ArtifactMusic, Path: s.MusicPath()})
	err := Verify(withEmpty)
	var mae *MissingArtifactError
	if !errors.As(err, &mae) || mae.Path != s.MusicPath() {
		t.Fatalf("Verify with empty music: err = %v", err)
	}

	missing := append(arts, types.MediaArtifact{Kind: types.ArtifactImage, Path: s.ImagePath(2)})
	if err := Verify(missing); !errors.Is(err, ErrMissingArtifact) {
		t.Fatalf("Verify with missing image: err = %v; want ErrMissingArtifact", err)
	}
}

func TestRetentionPolicy(t *testing.T) {
	if ParseRetentionPolicy("") != Retain || ParseRetentionPolicy("retain") != Retain {
		t.Error("default policy should retain")
	}
	if ParseRetentionPolicy("Cleanup") != Cleanup || ParseRetentionPolicy("false") != Cleanup {
		t.Error("cleanup aliases not recognised")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "job_speech.wav")
	os.WriteFile(path, []byte("x"), 0o644)
	arts := []types.MediaArtifact{{Kind: types.ArtifactSpeech, Path: path}, {Kind: types.ArtifactMusic, Path: filepath.Join(dir, "gone.wav")}}

	Retain.Apply(arts, zaptest.NewLogger(t))
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("retain removed the artifact: %v", err)
	}
	Cleanup.Apply(arts, zaptest.NewLogger(t))
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("cleanup kept the artifact: %v", err)
	}
}

func TestRemoveTemps(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore(dir, "job")
	other, _ := NewStore(dir, "job2")

	for _, p := range []string{s.TempPath("mix.wav"), s.TempPath("manifest.txt"), other.TempPath("mix.wav"), s.SpeechPath()} {
		os.WriteFile(p, []byte("x"), 0o644)
	}
	if err := s.RemoveTemps(); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{s.TempPath("mix.wav"), s.TempPath("manifest.txt")} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s still present", p)
		}
	}
	for _, p := range []string{other.TempPath("mix.wav"), s.SpeechPath()} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should be untouched: %v", p, err)
		}
	}
}
