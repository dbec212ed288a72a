// Package config loads extraction parameters from a JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ChrisMcGann/msnorm/pkg/core"
	"github.com/ChrisMcGann/msnorm/pkg/filter"
	"github.com/ChrisMcGann/msnorm/pkg/resample"
	"github.com/ChrisMcGann/msnorm/pkg/search"
)

// maxFileSize caps the size of a parameter file.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// Params is the root parameter file. Omitted fields fall back to the
// library defaults through the Get* methods, so partial files are safe.
type Params struct {
	// Resampling
	SeqLen  *int     `json:"seq_len,omitempty"`
	MaxTime *float64 `json:"max_time,omitempty"`
	Step    *float64 `json:"step,omitempty"`

	// Mass window
	PPM          *float64 `json:"ppm,omitempty"`
	PPMOffset    *float64 `json:"ppm_offset,omitempty"`
	LowMzCutoff  *float64 `json:"low_mz_cutoff,omitempty"`
	HighMzCutoff *float64 `json:"high_mz_cutoff,omitempty"`

	// Peak clean-up
	DropZero        *bool    `json:"drop_zero,omitempty"`
	TopN            *int     `json:"top_n,omitempty"`
	IntensityCutoff *float64 `json:"intensity_cutoff,omitempty"`
	MinMz           *float64 `json:"min_mz,omitempty"`
	MaxMz           *float64 `json:"max_mz,omitempty"`

	// Execution
	Workers *int    `json:"workers,omitempty"`
	Mode    *string `json:"mode,omitempty"` // "pos" or "neg"
}

// Empty returns a Params with every field unset.
func Empty() *Params {
	return &Params{}
}

// Load reads a Params from a JSON file. The file must have a .json
// extension and be at most 1MB.
func Load(path string) (*Params, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	p := Empty()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return p, nil
}

// Validate checks the values that are set. The derived search and
// resample configs are validated as a whole.
func (p *Params) Validate() error {
	if p.Mode != nil {
		if _, err := core.ParseMode(*p.Mode); err != nil {
			return err
		}
	}
	if p.Workers != nil && *p.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *p.Workers)
	}
	if err := p.SearchConfig().Validate(); err != nil {
		return err
	}
	if err := p.ResampleConfig().Validate(); err != nil {
		return err
	}
	return p.FilterConfig().Validate()
}

// GetSeqLen returns seq_len or the default.
func (p *Params) GetSeqLen() int {
	if p.SeqLen == nil {
		return resample.DefaultSeqLen
	}
	return *p.SeqLen
}

// GetMaxTime returns max_time or the default.
func (p *Params) GetMaxTime() float64 {
	if p.MaxTime == nil {
		return resample.DefaultMaxTime
	}
	return *p.MaxTime
}

// GetStep returns step or the default.
func (p *Params) GetStep() float64 {
	if p.Step == nil {
		return resample.DefaultStep
	}
	return *p.Step
}

// GetPPM returns ppm or the default.
func (p *Params) GetPPM() float64 {
	if p.PPM == nil {
		return search.DefaultPPM
	}
	return *p.PPM
}

// GetPPMOffset returns ppm_offset or zero.
func (p *Params) GetPPMOffset() float64 {
	if p.PPMOffset == nil {
		return 0
	}
	return *p.PPMOffset
}

// GetLowMzCutoff returns low_mz_cutoff or the default.
func (p *Params) GetLowMzCutoff() float64 {
	if p.LowMzCutoff == nil {
		return search.DefaultLowCutoff
	}
	return *p.LowMzCutoff
}

// GetHighMzCutoff returns high_mz_cutoff or the default.
func (p *Params) GetHighMzCutoff() float64 {
	if p.HighMzCutoff == nil {
		return search.DefaultHighCutoff
	}
	return *p.HighMzCutoff
}

// GetWorkers returns workers, or 0 meaning one per CPU.
func (p *Params) GetWorkers() int {
	if p.Workers == nil {
		return 0
	}
	return *p.Workers
}

// GetMode returns mode or "pos".
func (p *Params) GetMode() string {
	if p.Mode == nil || *p.Mode == "" {
		return core.ModePositive
	}
	return *p.Mode
}

// SearchConfig returns the mass window settings.
func (p *Params) SearchConfig() search.Config {
	return search.Config{
		PPM:        p.GetPPM(),
		PPMOffset:  p.GetPPMOffset(),
		LowCutoff:  p.GetLowMzCutoff(),
		HighCutoff: p.GetHighMzCutoff(),
	}
}

// ResampleConfig returns the resampling settings.
func (p *Params) ResampleConfig() resample.Config {
	return resample.Config{
		SeqLen:  p.GetSeqLen(),
		MaxTime: p.GetMaxTime(),
		Step:    p.GetStep(),
	}
}

// FilterConfig returns the peak clean-up settings.
func (p *Params) FilterConfig() filter.Config {
	var fc filter.Config
	if p.DropZero != nil {
		fc.DropZero = *p.DropZero
	}
	if p.TopN != nil {
		fc.TopN = *p.TopN
	}
	if p.IntensityCutoff != nil {
		fc.IntensityCutoff = *p.IntensityCutoff
	}
	if p.MinMz != nil {
		fc.MinMz = *p.MinMz
	}
	if p.MaxMz != nil {
		fc.MaxMz = *p.MaxMz
	}
	return fc
}
