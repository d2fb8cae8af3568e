package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/analogdevicesinc/tflite-micro/pkg/tensor"
)

// WriteCSV writes the elements of t as one comma-separated line.
func WriteCSV(w io.Writer, t Tensor) error {
	bw := bufio.NewWriter(w)
	n := 0
	sep := func() {
		if n > 0 {
			bw.WriteByte(',')
		}
		n++
	}
	switch t.DType {
	case tensor.Int8:
		for _, v := range t.I8 {
			sep()
			bw.WriteString(strconv.Itoa(int(v)))
		}
	case tensor.Int16:
		for _, v := range t.I16 {
			sep()
			bw.WriteString(strconv.Itoa(int(v)))
		}
	default:
		for _, v := range t.F32 {
			sep()
			bw.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
		}
	}
	bw.WriteByte('\n')
	return bw.Flush()
}

// csvSuffix is the type suffix ccarray maps to a C element type.
func csvSuffix(d tensor.DataType) string {
	if d == tensor.Float32 {
		return "float"
	}
	return d.String()
}

// CSVName returns the export path of tensor i of rec:
// <dir>/<stage>_b<block>_<in|out><i>_<type>.csv.
func CSVName(dir string, rec *Record, output bool, i int) string {
	side, ts := "in", rec.Inputs
	if output {
		side, ts = "out", rec.Outputs
	}
	var dtype tensor.DataType
	if i >= 0 && i < len(ts) {
		dtype = ts[i].DType
	}
	name := fmt.Sprintf("%s_b%d_%s%d_%s.csv", rec.Stage, rec.Block, side, i, csvSuffix(dtype))
	return filepath.Join(dir, name)
}

// Filter selects records for Export. A negative Block or empty Stage
// matches everything.
type Filter struct {
	Block int
	Stage string
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec *Record) bool {
	if f.Block >= 0 && rec.Block != f.Block {
		return false
	}
	return f.Stage == "" || rec.Stage == f.Stage
}

// Export writes every tensor of the matching records of r to dir as CSV
// and returns the written paths.
func Export(r *Reader, dir string, f Filter) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var paths []string
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return paths, nil
		}
		if err != nil {
			return paths, err
		}
		if !f.Match(rec) {
			continue
		}
		for _, output := range []bool{false, true} {
			ts := rec.Inputs
			if output {
				ts = rec.Outputs
			}
			for i, t := range ts {
				path := CSVName(dir, rec, output, i)
				if err := writeCSVFile(path, t); err != nil {
					return paths, err
				}
				paths = append(paths, path)
			}
		}
	}
}

func writeCSVFile(path string, t Tensor) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("trace: %s: %w", path, err)
	}
	return f.Close()
}
