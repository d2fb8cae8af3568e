package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrinter(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut)

	p.Success("wrote %s", "a.wav")
	p.Info("blocks: %d", 3)
	p.Warning("dropped %d samples", 7)
	p.Error("failed: %s", "b.wav")
	p.Verbosef("hidden")

	for _, want := range []string{"wrote a.wav", "blocks: 3", "dropped 7 samples"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("stdout %q lacks %q", out.String(), want)
		}
	}
	if !strings.Contains(errOut.String(), "failed: b.wav") {
		t.Errorf("stderr = %q", errOut.String())
	}
	if strings.Contains(errOut.String(), "hidden") {
		t.Error("verbose output printed while Verbose is false")
	}

	p.Verbose = true
	p.Verbosef("shown %d", 1)
	if !strings.Contains(errOut.String(), "[verbose] shown 1") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestPrinterTable(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, &out)
	p.Table([][2]string{{"blocks", "122"}, {"mean", "1.25ms"}})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[0], "122") || !strings.Contains(lines[1], "1.25ms") {
		t.Errorf("table = %q", out.String())
	}
}
