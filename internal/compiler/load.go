package compiler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/graphcfg/internal/packet"
)

// SourceExtensions lists the file extensions LoadDir compiles.
var SourceExtensions = []string{".cue", ".yaml", ".yml", ".hcl"}

// IsSource reports whether path has a compilable extension.
func IsSource(path string) bool {
	return slices.Contains(SourceExtensions, filepath.Ext(path))
}

// CompileFile compiles one source file, choosing the format by extension.
func CompileFile(path string) (*Bundle, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	switch filepath.Ext(path) {
	case ".cue":
		return CompileCUE(cuecontext.New(), src, path)
	case ".yaml", ".yml":
		return CompileYAML(src, path)
	case ".hcl":
		return CompileHCL(src, path)
	default:
		return nil, fmt.Errorf("%s: unsupported source format", path)
	}
}

// LoadDir compiles every source file under root, in lexical path order,
// and merges the results. root may also name a single file.
func LoadDir(root string) (*Bundle, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return CompileFile(root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && d.Name() == "testdata" {
				return filepath.SkipDir
			}
			return nil
		}
		if IsSource(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	bundle := &Bundle{}
	for _, p := range paths {
		b, err := CompileFile(p)
		if err != nil {
			return nil, err
		}
		if err := bundle.Merge(b); err != nil {
			return nil, err
		}
	}
	return bundle, nil
}

// LoadSidePackets reads a side packet file in YAML (or JSON) or HCL form.
func LoadSidePackets(path string) (packet.SidePackets, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if filepath.Ext(path) == ".hcl" {
		return ParseHCLSidePackets(src, path)
	}
	return ParseYAMLSidePackets(src)
}
