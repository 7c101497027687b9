package nashville

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/tsawler/nashville/pipeline"
	"github.com/tsawler/nashville/transpose"
)

// Result is a finished conversion.
type Result struct {
	*pipeline.ConversionResult

	// Document is the converted PDF. It is nil when the run failed.
	Document []byte
}

// Converter provides a fluent interface for converting chord charts.
// Each configuration method returns a new Converter, so a partially
// configured Converter can be shared and reused safely.
type Converter struct {
	filename string
	data     []byte

	options ConvertOptions
}

// clone creates a shallow copy of the Converter with a deep copy of options.
func (c *Converter) clone() *Converter {
	return &Converter{
		filename: c.filename,
		data:     c.data,
		options:  c.options.clone(),
	}
}

// ============================================================================
// Configuration
// ============================================================================

// Key sets the key the chart is in.
//
// Example:
//
//	res, err := nashville.Open("chart.pdf").Key("Bb").Convert()
func (c *Converter) Key(key string) *Converter {
	newConv := c.clone()
	newConv.options.key = key
	return newConv
}

// Mode sets the mode of the key. It turns off AutoMode.
func (c *Converter) Mode(mode transpose.Mode) *Converter {
	newConv := c.clone()
	newConv.options.mode = mode
	newConv.options.auto = false
	return newConv
}

// Major is shorthand for Mode(transpose.Major).
func (c *Converter) Major() *Converter {
	return c.Mode(transpose.Major)
}

// Minor is shorthand for Mode(transpose.Minor).
//
// Example:
//
//	res, err := nashville.Open("chart.pdf").Key("A").Minor().Convert()
func (c *Converter) Minor() *Converter {
	return c.Mode(transpose.Minor)
}

// AutoMode guesses major or minor from the chords found in the chart.
func (c *Converter) AutoMode() *Converter {
	newConv := c.clone()
	newConv.options.auto = true
	return newConv
}

// Debug attaches intermediate results to the Result.
func (c *Converter) Debug() *Converter {
	newConv := c.clone()
	newConv.options.debug = true
	return newConv
}

// WithConfig replaces the default thresholds.
func (c *Converter) WithConfig(cfg pipeline.Config) *Converter {
	newConv := c.clone()
	newConv.options.config = cfg
	return newConv
}

// WithPipelineOptions passes options through to the underlying pipeline,
// for example to log stage events or use another temp store.
//
// Example:
//
//	sink := observe.NewZapSink(logger)
//	res, err := nashville.Open("chart.pdf").
//	    Key("E").
//	    WithPipelineOptions(pipeline.WithSink(sink)).
//	    Convert()
func (c *Converter) WithPipelineOptions(opts ...pipeline.Option) *Converter {
	newConv := c.clone()
	newConv.options.pipelineOpts = append(newConv.options.pipelineOpts, opts...)
	return newConv
}

// ============================================================================
// Terminal operations
// ============================================================================

// Convert runs the conversion. On failure the returned error is the run's
// *pipeline.StructuredError and the Result still describes how far the run
// got.
func (c *Converter) Convert() (*Result, error) {
	return c.ConvertContext(context.Background())
}

// ConvertContext is Convert with a context for temp storage operations.
func (c *Converter) ConvertContext(ctx context.Context) (*Result, error) {
	data, err := c.load()
	if err != nil {
		return nil, err
	}

	req := pipeline.ConversionRequest{
		CorrelationID: uuid.NewString(),
		Key:           c.options.key,
		Mode:          c.options.mode,
		AutoMode:      c.options.auto,
		Debug:         c.options.debug,
	}
	res, doc := c.newPipeline().Run(ctx, data, req)
	if err := res.Err(); err != nil {
		return &Result{ConversionResult: res}, err
	}
	return &Result{ConversionResult: res, Document: doc}, nil
}

// WriteTo converts the chart and writes the converted PDF to path.
//
// Example:
//
//	res, err := nashville.Open("chart.pdf").Key("G").WriteTo("chart_nashville.pdf")
func (c *Converter) WriteTo(path string) (*Result, error) {
	res, err := c.Convert()
	if err != nil {
		return res, err
	}
	if err := os.WriteFile(path, res.Document, 0o644); err != nil {
		return res, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return res, nil
}

// Validate checks whether the chart can be converted without converting
// it. The key and mode are not needed.
func (c *Converter) Validate() (*pipeline.ValidationResult, error) {
	data, err := c.load()
	if err != nil {
		return nil, err
	}
	res := c.newPipeline().Validate(context.Background(), data, uuid.NewString())
	if res.Error != nil {
		return res, res.Error
	}
	return res, nil
}

func (c *Converter) newPipeline() *pipeline.Pipeline {
	return pipeline.New(c.options.config, c.options.pipelineOpts...)
}

// load returns the document bytes, reading the file if needed.
func (c *Converter) load() ([]byte, error) {
	if c.data != nil {
		return c.data, nil
	}
	if c.filename == "" {
		return nil, errors.New("no filename specified")
	}
	data, err := os.ReadFile(c.filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", c.filename, err)
	}
	return data, nil
}
