package ccarray

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirBaseName is the file stem written in directory mode.
const DirBaseName = "micro_speech_audio_data"

// Generate writes C sources for inputs.
//
// When output ends in .cc or .h, exactly one input is allowed and only that
// file is written. Otherwise output is a directory: the first input becomes
// <output>/micro_speech_audio_data.cc and .h, and the remaining inputs are
// ignored. Generate returns the written paths, the .cc path first.
func Generate(output string, inputs []string) ([]string, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("ccarray: no input files")
	}

	if strings.HasSuffix(output, ".cc") || strings.HasSuffix(output, ".h") {
		if len(inputs) != 1 {
			return nil, fmt.Errorf("ccarray: output %s takes exactly one input, got %d", output, len(inputs))
		}
	}
	a, err := FromFile(inputs[0])
	if err != nil {
		return nil, err
	}
	return Emit(output, a)
}

// Emit writes a to output: the single .cc or .h file it names, or the
// DirBaseName source and header pair inside the output directory.
func Emit(output string, a *Array) ([]string, error) {
	if strings.HasSuffix(output, ".cc") || strings.HasSuffix(output, ".h") {
		if err := WriteFile(output, a); err != nil {
			return nil, err
		}
		return []string{output}, nil
	}
	if err := os.MkdirAll(output, 0o755); err != nil {
		return nil, err
	}
	base := filepath.Join(output, DirBaseName)
	paths := []string{base + ".cc", base + ".h"}
	for _, p := range paths {
		if err := WriteFile(p, a); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// HeaderInclude returns the include path a generated .cc uses for its
// header: the part after the last "genfiles/", with .cc replaced by .h.
func HeaderInclude(output string) string {
	if i := strings.LastIndex(output, "genfiles/"); i >= 0 {
		output = output[i+len("genfiles/"):]
	}
	return strings.ReplaceAll(output, ".cc", ".h")
}

// WriteFile writes a as a .cc or .h file, chosen by the extension of path.
// Parent directories are created.
func WriteFile(path string, a *Array) error {
	isSource := strings.HasSuffix(path, ".cc")
	if !isSource && !strings.HasSuffix(path, ".h") {
		return fmt.Errorf("ccarray: generated file must end with .cc or .h: %s", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if isSource {
		err = a.WriteSource(w, HeaderInclude(path))
	} else {
		err = a.WriteHeader(w)
	}
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("ccarray: write %s: %w", path, err)
	}
	return f.Close()
}
