package nashville

import (
	"github.com/tsawler/nashville/pipeline"
	"github.com/tsawler/nashville/transpose"
)

// ConvertOptions holds configuration for a conversion.
type ConvertOptions struct {
	key   string
	mode  transpose.Mode
	auto  bool // guess the mode from the chords found
	debug bool

	config       pipeline.Config
	pipelineOpts []pipeline.Option
}

// defaultOptions returns the default conversion options.
func defaultOptions() ConvertOptions {
	return ConvertOptions{
		mode:   transpose.Major,
		config: pipeline.DefaultConfig(),
	}
}

// clone creates a deep copy of ConvertOptions.
func (o ConvertOptions) clone() ConvertOptions {
	newOpts := o
	if o.pipelineOpts != nil {
		newOpts.pipelineOpts = make([]pipeline.Option, len(o.pipelineOpts))
		copy(newOpts.pipelineOpts, o.pipelineOpts)
	}
	return newOpts
}
