// Package onnx runs inference stages on ONNX Runtime.
//
// The runtime is a shared library loaded once per process by [Init]. Models
// are opened with [Load], which reads their declared tensor contract and
// returns a [Session] implementing [stage.Stage]:
//
//	if err := onnx.Init(""); err != nil {
//		return err
//	}
//	defer onnx.Shutdown()
//
//	mask, _ := onnx.Load("dtln_mask.onnx", nil)
//	defer mask.Close()
//
// # Library Discovery
//
// [Init] resolves the shared library from its argument, then the
// ONNXRUNTIME_SHARED_LIBRARY_PATH environment variable, then a list of
// well-known install locations.
//
// # Thread Safety
//
// Init and Shutdown are safe for concurrent use. A Session serializes its
// own Invoke calls.
package onnx

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// EnvLibraryPath names the environment variable consulted by Init.
const EnvLibraryPath = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// ErrLibraryNotFound is returned by Init when no shared library can be located.
var ErrLibraryNotFound = errors.New("onnx: runtime library not found")

var (
	initMu      sync.Mutex
	initialized bool
	libraryUsed string
)

// Init loads the ONNX Runtime shared library and creates the process-wide
// environment. Calling it again after a successful Init is a no-op.
func Init(libraryPath string) error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized {
		return nil
	}

	path, err := findLibrary(libraryPath)
	if err != nil {
		return err
	}
	ort.SetSharedLibraryPath(path)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("onnx: initialize runtime %s: %w", path, err)
	}

	initialized = true
	libraryUsed = path
	slog.Debug("onnx runtime initialized", "library", path)
	return nil
}

// Shutdown destroys the runtime environment. Sessions must be closed first.
func Shutdown() error {
	initMu.Lock()
	defer initMu.Unlock()

	if !initialized {
		return nil
	}
	initialized = false
	libraryUsed = ""
	if err := ort.DestroyEnvironment(); err != nil {
		return fmt.Errorf("onnx: destroy runtime: %w", err)
	}
	return nil
}

// Library returns the shared library path in use, or "" before Init.
func Library() string {
	initMu.Lock()
	defer initMu.Unlock()
	return libraryUsed
}

func ensureInit() error {
	initMu.Lock()
	defer initMu.Unlock()
	if !initialized {
		return errors.New("onnx: runtime not initialized, call Init first")
	}
	return nil
}

func findLibrary(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("onnx: runtime library %s: %w", explicit, err)
		}
		return explicit, nil
	}
	if p := os.Getenv(EnvLibraryPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("onnx: %s=%s: %w", EnvLibraryPath, p, err)
		}
		return p, nil
	}
	for _, p := range searchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", ErrLibraryNotFound
}

func searchPaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"./libonnxruntime.dylib",
			"/opt/homebrew/lib/libonnxruntime.dylib",
			"/usr/local/lib/libonnxruntime.dylib",
		}
	case "windows":
		return []string{
			"onnxruntime.dll",
		}
	default:
		return []string{
			"./libonnxruntime.so",
			"/usr/local/lib/libonnxruntime.so",
			"/usr/lib/libonnxruntime.so",
			"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
			"/usr/lib/aarch64-linux-gnu/libonnxruntime.so",
		}
	}
}
