package hashstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// OutputMappingFile is written by the compilers into the module .builder
// directory.
const OutputMappingFile = "output.json"

// LoadOutputMapping reads moduleOutputDir/.builder/output.json. Without it
// every file of the output directory is treated as its own source.
func LoadOutputMapping(moduleOutputDir string) (OutputMapping, error) {
	path := filepath.Join(moduleOutputDir, MetaDir, OutputMappingFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return identityMapping(moduleOutputDir)
	}
	if err != nil {
		return nil, fmt.Errorf("reading output mapping: %w", err)
	}

	var m OutputMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing output mapping %s: %w", path, err)
	}
	if m == nil {
		m = OutputMapping{}
	}
	return m, nil
}

func identityMapping(dir string) (OutputMapping, error) {
	files, err := ListFiles(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return OutputMapping{}, nil
		}
		return nil, err
	}
	m := make(OutputMapping, len(files))
	for _, f := range files {
		m[f] = []string{f}
	}
	return m, nil
}
