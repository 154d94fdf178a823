package adapters

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavBitDepth = 16

// AudioResult holds interleaved PCM samples in [-1, 1]
type AudioResult struct {
	Samples    []float32
	Channels   int
	SampleRate int
	Prompt     string
}

// Duration returns the clip length in seconds
func (a *AudioResult) Duration() float64 {
	if a == nil || a.SampleRate <= 0 || a.Channels <= 0 {
		return 0
	}
	return float64(len(a.Samples)/a.Channels) / float64(a.SampleRate)
}

// WriteWAV encodes res as 16-bit PCM. Output is deterministic for a given input.
func WriteWAV(res *AudioResult, path string) error {
	if res == nil || res.SampleRate <= 0 || res.Channels <= 0 {
		return &IOError{Path: path, Err: errors.New("empty or malformed audio")}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &IOError{Path: path, Err: err}
	}

	f, err := os.Create(path)
	if err != nil {
		return &IOError{Path: path, Err: err}
	}

	data := make([]int, len(res.Samples))
	for i, s := range res.Samples {
		data[i] = floatToPCM16(s)
	}

	enc := wav.NewEncoder(f, res.SampleRate, wavBitDepth, res.Channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: res.Channels, SampleRate: res.SampleRate},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return &IOError{Path: path, Err: err}
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return &IOError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Path: path, Err: err}
	}
	return nil
}

// ReadWAV decodes a PCM WAV file into an AudioResult
func ReadWAV(path string) (*AudioResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeWAV(f)
}

// DecodeWAV decodes PCM WAV data from r
func DecodeWAV(r io.ReadSeeker) (*AudioResult, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("not a valid wav stream")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode pcm: %w", err)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 {
		bitDepth = wavBitDepth
	}
	scale := float32(math.Pow(2, float64(bitDepth-1)))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}
	return &AudioResult{
		Samples:    samples,
		Channels:   int(dec.NumChans),
		SampleRate: int(dec.SampleRate),
	}, nil
}

// WAVDuration reports the clip length in seconds from the size of the data
// chunk. The RIFF size also counts the header chunks, so it is not used.
func WAVDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%s: not a valid wav file", path)
	}
	if err := dec.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("%s: find pcm data: %w", path, err)
	}
	if err := dec.Err(); err != nil {
		return 0, fmt.Errorf("%s: read headers: %w", path, err)
	}
	bytesPerSecond := int64(dec.SampleRate) * int64(dec.NumChans) * int64(dec.BitDepth/8)
	if bytesPerSecond <= 0 {
		return 0, fmt.Errorf("%s: invalid format header", path)
	}
	return float64(dec.PCMLen()) / float64(bytesPerSecond), nil
}

func floatToPCM16(s float32) int {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int(math.Round(float64(s) * 32767))
}
