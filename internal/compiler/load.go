package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/recache/internal/schema"
)

// Load compiles the CUE schema at path: a single .cue file, or a directory
// whose .cue files form one package.
func Load(path string) (*schema.Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	ctx := cuecontext.New()

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load schema: %w", err)
		}
		return CompileSchema(ctx.CompileBytes(data, cue.Filename(path)))
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load schema: no CUE instances in %s", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("load schema: %w", inst.Err)
	}
	return CompileSchema(ctx.BuildInstance(inst))
}

// LoadSchema loads a schema by file extension: .yaml and .yml files are
// parsed by schema.Load, anything else (a .cue file or a directory) is
// compiled as CUE.
func LoadSchema(path string) (*schema.Schema, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return schema.Load(path)
	}
	return Load(path)
}
