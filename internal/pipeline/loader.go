package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Load reads a pipeline definition from a file. .cue and .json files go
// through the CUE evaluator (JSON is a CUE subset), .yaml/.yml through the
// YAML decoder. Defaults are applied and the definition is validated.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline definition: %w", err)
	}

	var p *Pipeline
	switch ext := filepath.Ext(path); ext {
	case ".cue", ".json":
		p, err = parseCUE(data, path)
	case ".yaml", ".yml":
		p, err = parseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported pipeline definition format %q (want .cue, .json, .yaml, or .yml)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// parseCUE evaluates the definition with CUE, which gives constraint
// checking and defaulting beyond plain decoding.
func parseCUE(data []byte, filename string) (*Pipeline, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile pipeline definition: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("pipeline definition is not concrete: %w", err)
	}

	var p Pipeline
	if err := v.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode pipeline definition: %w", err)
	}
	return &p, nil
}

func parseYAML(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode pipeline definition: %w", err)
	}
	return &p, nil
}
