package adapters

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is; the typed errors below carry the detail.
var (
	ErrModelLoad  = errors.New("model load failed")
	ErrNotLoaded  = errors.New("model not loaded")
	ErrGeneration = errors.New("generation failed")
	ErrIO         = errors.New("artifact write failed")
)

// ModelLoadError is returned by Load when weights, binaries or endpoints are missing
type ModelLoadError struct {
	Backend string
	Err     error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("%s: load model: %v", e.Backend, e.Err)
}

func (e *ModelLoadError) Unwrap() error        { return e.Err }
func (e *ModelLoadError) Is(target error) bool { return target == ErrModelLoad }

// NotLoadedError is returned when Generate is called before Load
type NotLoadedError struct {
	Backend string
}

func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("%s: model not loaded, call Load first", e.Backend)
}

func (e *NotLoadedError) Is(target error) bool { return target == ErrNotLoaded }

// GenerationError wraps the back end's native failure
type GenerationError struct {
	Backend string
	Prompt  string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: generate: %v", e.Backend, e.Err)
}

func (e *GenerationError) Unwrap() error        { return e.Err }
func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// IOError is returned by the Save methods
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error        { return e.Err }
func (e *IOError) Is(target error) bool { return target == ErrIO }
