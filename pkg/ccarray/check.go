package ccarray

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
)

// ErrMissingModelFiles is returned by CheckDir when no .cc or no .h file
// was found.
var ErrMissingModelFiles = errors.New("missing generated model files")

// CheckResult lists the generated sources found under a directory.
type CheckResult struct {
	Dir     string
	Sources []string // .cc file names
	Headers []string // .h file names
}

// CheckDir walks dir, following symlinks, and collects .cc and .h file
// names. Directories already visited through another link are skipped.
// The result is returned alongside the error when a set is empty.
func CheckDir(dir string) (*CheckResult, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	res := &CheckResult{Dir: dir}
	if err := walk(dir, res); err != nil {
		return nil, err
	}
	sort.Strings(res.Sources)
	sort.Strings(res.Headers)

	var missing []string
	if len(res.Sources) == 0 {
		missing = append(missing, ".cc")
	}
	if len(res.Headers) == 0 {
		missing = append(missing, ".h")
	}
	if len(missing) > 0 {
		return res, fmt.Errorf("%w: no %s files in %s", ErrMissingModelFiles, strings.Join(missing, " or "), dir)
	}
	return res, nil
}

func walk(dir string, res *CheckResult) error {
	seen := make(map[string]bool)
	return godirwalk.Walk(dir, &godirwalk.Options{
		FollowSymbolicLinks: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			isDir, err := de.IsDirOrSymlinkToDir()
			if err != nil {
				// Broken link.
				return nil
			}
			if isDir {
				real, err := filepath.EvalSymlinks(path)
				if err != nil || seen[real] {
					return godirwalk.SkipThis
				}
				seen[real] = true
				return nil
			}
			if de.IsSymlink() {
				if _, err := os.Stat(path); err != nil {
					return nil
				}
			}
			switch name := de.Name(); {
			case strings.HasSuffix(name, ".cc"):
				res.Sources = append(res.Sources, name)
			case strings.HasSuffix(name, ".h"):
				res.Headers = append(res.Headers, name)
			}
			return nil
		},
		ErrorCallback: func(string, error) godirwalk.ErrorAction {
			return godirwalk.SkipNode
		},
	})
}
