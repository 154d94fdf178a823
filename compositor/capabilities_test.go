package compositor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

const filtersOutput = `Filters:
  T.. = Timeline support
  .S. = Slice threading
  ..C = Command support
  A = Audio input/output
  V = Video input/output
 ... acrossfade        AA->A      Cross fade two input audio streams.
 ... amix              N->A       Audio mixing.
 ... apad              A->A       Pad audio with silence.
 T.C drawtext          V->V       Draw text on top of video frames using libfreetype library.
 ... xfade             VV->V      Cross fade one video with another video.
`

const encodersOutput = `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10 (codec h264)
 A....D aac                  AAC (Advanced Audio Coding)
`

func fakeRun(filters, encoders string) runFunc {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		switch args[len(args)-1] {
		case "-filters":
			return []byte(filters), nil
		case "-encoders":
			return []byte(encoders), nil
		}
		return nil, errors.New("unexpected command")
	}
}

func found(file string) (string, error) { return "/usr/bin/" + file, nil }

func TestDetectCapabilities(t *testing.T) {
	tests := []struct {
		name         string
		filters      string
		encoders     string
		lookPath     lookPathFunc
		wantPrimary  bool
		wantFallback bool
		wantSubs     bool
		wantASS      bool
		wantCodec    string
	}{
		{
			name:         "full build without libass",
			filters:      filtersOutput,
			encoders:     encodersOutput,
			lookPath:     found,
			wantPrimary:  true,
			wantFallback: true,
			wantSubs:     true,
			wantCodec:    "libx264",
		},
		{
			name:         "with libass",
			filters:      filtersOutput + " ... ass               V->V       Render ASS subtitles onto input video using the libass library.\n",
			encoders:     encodersOutput,
			lookPath:     found,
			wantPrimary:  true,
			wantFallback: true,
			wantSubs:     true,
			wantASS:      true,
			wantCodec:    "libx264",
		},
		{
			name:         "old build without xfade or x264",
			filters:      strings.ReplaceAll(filtersOutput, "xfade", "xstack"),
			encoders:     strings.ReplaceAll(encodersOutput, "libx264", "mpeg4"),
			lookPath:     found,
			wantFallback: true,
			wantSubs:     true,
			wantCodec:    "mpeg4",
		},
		{
			name:      "no ffmpeg",
			lookPath:  func(string) (string, error) { return "", errors.New("not found") },
			wantCodec: "libx264",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := detect(context.Background(), "", "", tt.lookPath, fakeRun(tt.filters, tt.encoders), zaptest.NewLogger(t))
			if caps.PrimaryAvailable != tt.wantPrimary {
				t.Errorf("PrimaryAvailable = %v; want %v", caps.PrimaryAvailable, tt.wantPrimary)
			}
			if caps.FallbackAvailable != tt.wantFallback {
				t.Errorf("FallbackAvailable = %v; want %v", caps.FallbackAvailable, tt.wantFallback)
			}
			if caps.SubtitlesAvailable != tt.wantSubs {
				t.Errorf("SubtitlesAvailable = %v; want %v", caps.SubtitlesAvailable, tt.wantSubs)
			}
			if caps.ASSFilter != tt.wantASS {
				t.Errorf("ASSFilter = %v; want %v", caps.ASSFilter, tt.wantASS)
			}
			if caps.VideoCodec != tt.wantCodec {
				t.Errorf("VideoCodec = %q; want %q", caps.VideoCodec, tt.wantCodec)
			}
		})
	}
}

func TestParseListingIgnoresLegend(t *testing.T) {
	names := parseListing(filtersOutput)
	for _, want := range []string{"acrossfade", "amix", "drawtext", "xfade"} {
		if !names[want] {
			t.Errorf("%s not parsed", want)
		}
	}
	if names["timeline"] || names["audio"] {
		t.Error("legend words parsed as filters")
	}
}
