package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/karrick/godirwalk"
	"github.com/spf13/cobra"

	"github.com/analogdevicesinc/tflite-micro/cmd/tflmtool/internal/config"
	"github.com/analogdevicesinc/tflite-micro/pkg/audio/resampler"
	"github.com/analogdevicesinc/tflite-micro/pkg/audio/wav"
	"github.com/analogdevicesinc/tflite-micro/pkg/cli"
	"github.com/analogdevicesinc/tflite-micro/pkg/denoise"
	"github.com/analogdevicesinc/tflite-micro/pkg/onnx"
	"github.com/analogdevicesinc/tflite-micro/pkg/stage"
	"github.com/analogdevicesinc/tflite-micro/pkg/trace"
)

// denoiseJob is the full set of denoise parameters. It is also the schema
// of the -f job file.
type denoiseJob struct {
	Input         string `yaml:"input" json:"input"`
	Output        string `yaml:"output" json:"output"`
	Mask          string `yaml:"mask" json:"mask"`
	Synth         string `yaml:"synth" json:"synth"`
	MaskManifest  string `yaml:"mask_manifest" json:"mask_manifest"`
	SynthManifest string `yaml:"synth_manifest" json:"synth_manifest"`
	Trace         string `yaml:"trace" json:"trace"`
	SampleRate    int    `yaml:"sample_rate" json:"sample_rate"`
	Quality       string `yaml:"resample_quality" json:"resample_quality"`
	BlockLen      int    `yaml:"block_len" json:"block_len"`
	BlockShift    int    `yaml:"block_shift" json:"block_shift"`
	Trim          bool   `yaml:"trim" json:"trim"`
	Library       string `yaml:"onnxruntime_library" json:"onnxruntime_library"`

	// Port layout, from tflmtool.yaml only.
	maskPorts, synthPorts denoise.Ports
}

// overlay copies the set fields of o over j.
func (j *denoiseJob) overlay(o *denoiseJob) {
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&j.Input, o.Input)
	set(&j.Output, o.Output)
	set(&j.Mask, o.Mask)
	set(&j.Synth, o.Synth)
	set(&j.MaskManifest, o.MaskManifest)
	set(&j.SynthManifest, o.SynthManifest)
	set(&j.Trace, o.Trace)
	set(&j.Quality, o.Quality)
	set(&j.Library, o.Library)
	if o.SampleRate != 0 {
		j.SampleRate = o.SampleRate
	}
	if o.BlockLen != 0 {
		j.BlockLen = o.BlockLen
	}
	if o.BlockShift != 0 {
		j.BlockShift = o.BlockShift
	}
	j.Trim = j.Trim || o.Trim
}

// fileReport describes one denoised file.
type fileReport struct {
	Input        string  `json:"input" yaml:"input"`
	Output       string  `json:"output" yaml:"output"`
	SourceRate   int     `json:"source_rate" yaml:"source_rate"`
	SampleRate   int     `json:"sample_rate" yaml:"sample_rate"`
	Samples      int     `json:"samples" yaml:"samples"`
	Written      int     `json:"written" yaml:"written"`
	Blocks       int     `json:"blocks" yaml:"blocks"`
	Dropped      int     `json:"dropped" yaml:"dropped"`
	Padded       int     `json:"padded" yaml:"padded"`
	TotalMS      float64 `json:"total_ms" yaml:"total_ms"`
	MeanBlockMS  float64 `json:"mean_block_ms" yaml:"mean_block_ms"`
	Trace        string  `json:"trace,omitempty" yaml:"trace,omitempty"`
	TraceRecords int     `json:"trace_records,omitempty" yaml:"trace_records,omitempty"`

	stats denoise.Stats
}

var (
	denoiseFlags  denoiseJob
	denoiseFile   string
	denoiseFormat string
)

// openStages opens the mask and synthesis stages of a job. Tests replace it
// with scripted stages.
var openStages = openONNXStages

var denoiseCmd = &cobra.Command{
	Use:   "denoise [input.wav|dir] [output.wav|dir]",
	Short: "Run the two-stage DTLN denoiser over WAV files",
	Long: `Denoise WAV files with the DTLN mask and synthesis models.

The input is averaged to mono and resampled to the model rate (16 kHz by
default). It is then processed in 512-sample blocks with a 128-sample
shift through both stages, carrying their LSTM states from block to
block. Fixed-point models are fed through their quantization
parameters; use --mask-manifest and --synth-manifest to pin the tensor
contract when the model file does not carry it.

The output has the length of the resampled input: trailing samples
that do not fill a block are written as silence. --trim writes only the
processed blocks.

A directory input processes every .wav file below it, recursively, into
the same relative path under the output directory, and under the trace
directory when --trace is set. Outputs are written through a temporary
file and renamed, so a failed run leaves nothing behind.

Flags override the -f job file, which overrides tflmtool.yaml.

Examples:
  tflmtool denoise noisy.wav clean.wav --mask model_1.onnx --synth model_2.onnx
  tflmtool denoise -f job.yaml --format json
  tflmtool denoise noisy.wav clean.wav --trace run.msgpack`,
	Args: rangeArgs(0, 2),
	RunE: runDenoise,
}

func runDenoise(cmd *cobra.Command, args []string) error {
	job, err := resolveJob(cmd, args)
	if err != nil {
		return err
	}
	var format cli.OutputFormat
	if denoiseFormat != "" {
		if format, err = cli.ParseOutputFormat(denoiseFormat); err != nil {
			return err
		}
	}
	quality, err := parseQuality(job.Quality)
	if err != nil {
		return err
	}
	cfg, err := job.geometry()
	if err != nil {
		return err
	}
	pairs, err := job.files()
	if err != nil {
		return err
	}

	mask, synth, closeStages, err := openStages(job)
	if err != nil {
		return err
	}
	defer closeStages()

	reports := make([]*fileReport, 0, len(pairs))
	for _, pr := range pairs {
		rep, err := denoiseOne(job, cfg, mask, synth, quality, pr)
		if err != nil {
			return fmt.Errorf("%s: %w", pr.in, err)
		}
		reports = append(reports, rep)
	}

	if format != "" {
		var result any = reports
		if len(reports) == 1 {
			result = reports[0]
		}
		return cli.Output(result, cli.OutputOptions{Format: format, Writer: cmd.OutOrStdout()})
	}

	p := printer(cmd)
	for _, rep := range reports {
		p.Success("denoised %s -> %s", rep.Input, rep.Output)
		rows := [][2]string{
			{"blocks", fmt.Sprintf("%d", rep.Blocks)},
			{"mean/block", cli.FormatDuration(rep.stats.Mean())},
			{"total", cli.FormatDuration(rep.stats.Total)},
		}
		if rep.SourceRate != rep.SampleRate {
			rows = append(rows, [2]string{"resampled", fmt.Sprintf("%d Hz -> %d Hz", rep.SourceRate, rep.SampleRate)})
		}
		if rep.Trace != "" {
			rows = append(rows, [2]string{"trace", fmt.Sprintf("%s (%d records)", rep.Trace, rep.TraceRecords)})
		}
		p.Table(rows)
		switch {
		case rep.Padded > 0:
			p.Warning("%d trailing samples do not fill a block; written as silence", rep.Dropped)
		case rep.Dropped > 0:
			p.Warning("dropped %d trailing samples that do not fill a block", rep.Dropped)
		}
	}
	return nil
}

// resolveJob layers built-in defaults, tflmtool.yaml, the job file, flags
// and positional arguments, in that order.
func resolveJob(cmd *cobra.Command, args []string) (*denoiseJob, error) {
	_, f, err := loadConfig()
	if err != nil {
		return nil, err
	}
	job := &denoiseJob{
		Mask:          f.Denoise.Mask,
		Synth:         f.Denoise.Synth,
		MaskManifest:  f.Denoise.MaskManifest,
		SynthManifest: f.Denoise.SynthManifest,
		SampleRate:    f.SampleRate,
		Quality:       f.Denoise.Quality,
		BlockLen:      f.Denoise.Geometry.BlockLen,
		BlockShift:    f.Denoise.Geometry.BlockShift,
		Library:       f.ONNXRuntime.Library,
		maskPorts:     f.Denoise.Geometry.Mask,
		synthPorts:    f.Denoise.Geometry.Synth,
	}
	if job.SampleRate == 0 {
		job.SampleRate = config.DefaultSampleRate
	}
	if job.Quality == "" {
		job.Quality = resampler.High.String()
	}

	if denoiseFile != "" {
		var fromFile denoiseJob
		if err := cli.LoadRequest(denoiseFile, &fromFile); err != nil {
			return nil, cli.InvalidArgument("%v", err)
		}
		job.overlay(&fromFile)
	}

	fromFlags := denoiseJob{}
	flags := cmd.Flags()
	for name, dst := range map[string]*string{
		"mask":           &fromFlags.Mask,
		"synth":          &fromFlags.Synth,
		"mask-manifest":  &fromFlags.MaskManifest,
		"synth-manifest": &fromFlags.SynthManifest,
		"trace":          &fromFlags.Trace,
		"quality":        &fromFlags.Quality,
		"ort-lib":        &fromFlags.Library,
	} {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	for name, dst := range map[string]*int{
		"sample-rate": &fromFlags.SampleRate,
		"block-len":   &fromFlags.BlockLen,
		"block-shift": &fromFlags.BlockShift,
	} {
		if flags.Changed(name) {
			*dst, _ = flags.GetInt(name)
		}
	}
	fromFlags.Trim = denoiseFlags.Trim
	if len(args) > 0 {
		fromFlags.Input = args[0]
	}
	if len(args) > 1 {
		fromFlags.Output = args[1]
	}
	job.overlay(&fromFlags)

	var missing []string
	for _, req := range []struct{ name, value string }{
		{"input", job.Input},
		{"output", job.Output},
		{"--mask", job.Mask},
		{"--synth", job.Synth},
	} {
		if req.value == "" {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return nil, cli.InvalidArgument("denoise: missing %s", strings.Join(missing, ", "))
	}
	if job.SampleRate <= 0 {
		return nil, cli.InvalidArgument("sample rate must be positive, got %d", job.SampleRate)
	}
	return job, nil
}

// geometry returns the processor configuration of the job.
func (j *denoiseJob) geometry() (denoise.Config, error) {
	cfg := denoise.DefaultConfig()
	if j.maskPorts != (denoise.Ports{}) {
		cfg.Mask = j.maskPorts
	}
	if j.synthPorts != (denoise.Ports{}) {
		cfg.Synth = j.synthPorts
	}
	if j.BlockLen != 0 {
		cfg.BlockLen = j.BlockLen
	}
	if j.BlockShift != 0 {
		cfg.BlockShift = j.BlockShift
	}
	if err := cfg.Validate(); err != nil {
		return cfg, cli.InvalidArgument("%v", err)
	}
	return cfg, nil
}

type filePair struct {
	in, out, trace string
}

// files expands the job input into input/output pairs.
func (j *denoiseJob) files() ([]filePair, error) {
	info, err := os.Stat(j.Input)
	if err != nil {
		return nil, cli.Invalid(err)
	}

	if !info.IsDir() {
		out := j.Output
		if oi, err := os.Stat(out); err == nil && oi.IsDir() {
			out = filepath.Join(out, filepath.Base(j.Input))
		}
		return []filePair{{in: j.Input, out: out, trace: j.Trace}}, nil
	}

	rels, err := wavFiles(j.Input, j.Output, j.Trace)
	if err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return nil, cli.InvalidArgument("no .wav files in %s", j.Input)
	}

	pairs := make([]filePair, len(rels))
	for i, rel := range rels {
		pairs[i] = filePair{in: filepath.Join(j.Input, rel), out: filepath.Join(j.Output, rel)}
		if err := os.MkdirAll(filepath.Dir(pairs[i].out), 0o755); err != nil {
			return nil, err
		}
		if j.Trace != "" {
			pairs[i].trace = filepath.Join(j.Trace, strings.TrimSuffix(rel, filepath.Ext(rel))+".msgpack")
			if err := os.MkdirAll(filepath.Dir(pairs[i].trace), 0o755); err != nil {
				return nil, err
			}
		}
	}
	return pairs, nil
}

// wavFiles returns the .wav files below root as sorted paths relative to
// it. The output and trace directories are not descended into when they
// sit inside root.
func wavFiles(root string, skip ...string) ([]string, error) {
	skipDirs := make(map[string]bool)
	for _, d := range skip {
		if d == "" {
			continue
		}
		if abs, err := filepath.Abs(d); err == nil {
			skipDirs[abs] = true
		}
	}

	var rels []string
	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				if abs, err := filepath.Abs(path); err == nil && skipDirs[abs] && path != root {
					return godirwalk.SkipThis
				}
				return nil
			}
			if !strings.EqualFold(filepath.Ext(path), ".wav") {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rels = append(rels, rel)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(rels)
	return rels, nil
}

func denoiseOne(job *denoiseJob, cfg denoise.Config, mask, synth stage.Stage, quality resampler.Quality, pr filePair) (*fileReport, error) {
	a, err := wav.ReadFile(pr.in)
	if err != nil {
		return nil, cli.Invalid(err)
	}
	samples := a.Samples
	if a.SampleRate != job.SampleRate {
		slog.Debug("denoise: resampling", "input", pr.in, "from", a.SampleRate, "to", job.SampleRate)
		samples, err = resampler.Resample(samples, a.SampleRate, job.SampleRate, resampler.WithQuality(quality))
		if err != nil {
			return nil, err
		}
	}

	opts := []denoise.Option{denoise.WithLogger(slog.Default().With("input", pr.in))}
	var (
		rec       *trace.Recorder
		traceFile *os.File
	)
	if pr.trace != "" {
		traceFile, err = os.Create(pr.trace)
		if err != nil {
			return nil, err
		}
		defer traceFile.Close()
		rec, err = trace.NewRecorder(traceFile, trace.Header{
			Source:     pr.in,
			BlockLen:   cfg.BlockLen,
			BlockShift: cfg.BlockShift,
			SampleRate: job.SampleRate,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, denoise.WithObserver(rec))
	}

	proc, err := denoise.New(cfg, mask, synth, opts...)
	if err != nil {
		return nil, err
	}
	out, err := proc.Process(samples)
	if rec != nil {
		if cerr := rec.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}
	if err != nil {
		return nil, err
	}
	processed := len(out)
	if !job.Trim && len(out) < len(samples) {
		out = append(out, make([]float32, len(samples)-len(out))...)
	}

	if err := writeWAVAtomic(pr.out, out, job.SampleRate); err != nil {
		return nil, err
	}

	st := proc.Stats()
	rep := &fileReport{
		Input:       pr.in,
		Output:      pr.out,
		SourceRate:  a.SampleRate,
		SampleRate:  job.SampleRate,
		Samples:     len(samples),
		Written:     len(out),
		Blocks:      st.Blocks,
		Dropped:     st.Dropped,
		Padded:      len(out) - processed,
		TotalMS:     durationMS(st.Total),
		MeanBlockMS: durationMS(st.Mean()),
		Trace:       pr.trace,
		stats:       st,
	}
	if rec != nil {
		rep.TraceRecords = rec.Count()
	}
	slog.Debug("denoise: done", "input", pr.in, "blocks", st.Blocks, "mean", st.Mean())
	return rep, nil
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// writeWAVAtomic writes a 16-bit WAV next to path and renames it into place.
func writeWAVAtomic(path string, samples []float32, rate int) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(name)
		}
	}()

	if err := wav.Encode(tmp, samples, rate, wav.DefaultBitDepth); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}

func openONNXStages(job *denoiseJob) (stage.Stage, stage.Stage, func(), error) {
	if err := onnx.Init(job.Library); err != nil {
		return nil, nil, nil, err
	}

	var sessions []*onnx.Session
	closeAll := func() {
		for _, s := range sessions {
			s.Close()
		}
		if err := onnx.Shutdown(); err != nil {
			slog.Warn("onnx shutdown", "error", err)
		}
	}

	load := func(path, manifestPath string) error {
		var m *stage.Manifest
		if manifestPath != "" {
			var err error
			if m, err = stage.LoadManifest(manifestPath); err != nil {
				return err
			}
		}
		s, err := onnx.Load(path, m)
		if err != nil {
			return err
		}
		sessions = append(sessions, s)
		return nil
	}
	if err := load(job.Mask, job.MaskManifest); err != nil {
		closeAll()
		return nil, nil, nil, err
	}
	if err := load(job.Synth, job.SynthManifest); err != nil {
		closeAll()
		return nil, nil, nil, err
	}
	slog.Debug("denoise: stages loaded", "library", onnx.Library(),
		"mask", sessions[0].Inputs(), "synth", sessions[1].Inputs())
	return sessions[0], sessions[1], closeAll, nil
}

func init() {
	f := denoiseCmd.Flags()
	f.StringVar(&denoiseFlags.Mask, "mask", "", "mask stage model (.onnx)")
	f.StringVar(&denoiseFlags.Synth, "synth", "", "synthesis stage model (.onnx)")
	f.StringVar(&denoiseFlags.MaskManifest, "mask-manifest", "", "tensor manifest for the mask stage (YAML or JSON)")
	f.StringVar(&denoiseFlags.SynthManifest, "synth-manifest", "", "tensor manifest for the synthesis stage (YAML or JSON)")
	f.StringVar(&denoiseFlags.Trace, "trace", "", "record stage tensors to this msgpack file (a directory for directory input)")
	f.StringVar(&denoiseFlags.Quality, "quality", "high", "resampling quality (quick, low, medium, high, very-high)")
	f.StringVar(&denoiseFlags.Library, "ort-lib", "", "ONNX Runtime shared library")
	f.IntVar(&denoiseFlags.SampleRate, "sample-rate", config.DefaultSampleRate, "model sample rate")
	f.IntVar(&denoiseFlags.BlockLen, "block-len", 512, "block length in samples")
	f.IntVar(&denoiseFlags.BlockShift, "block-shift", 128, "block shift in samples")
	f.BoolVar(&denoiseFlags.Trim, "trim", false, "write only the processed blocks instead of padding to the input length")
	f.StringVarP(&denoiseFile, "file", "f", "", "job file (YAML or JSON)")
	f.StringVar(&denoiseFormat, "format", "", "report format (yaml, json); default is a styled summary")

	rootCmd.AddCommand(denoiseCmd)
}
