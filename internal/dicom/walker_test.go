package dicom

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mrsinham/dicomtable/internal/dicom/fixture"
	"github.com/mrsinham/dicomtable/internal/observability"
)

func writeImage(t *testing.T, path string, n int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create directory: %v", err)
	}
	img := fixture.Image{PatientID: "PAT001", InstanceNumber: n, SliceLocation: fixture.Location(float64(n))}
	if err := fixture.Write(path, img); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestIsDICOM(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.dcm")
	writeImage(t, valid, 1)

	notDICOM := filepath.Join(dir, "notes.txt")
	if err := fixture.NotDICOM(notDICOM); err != nil {
		t.Fatal(err)
	}
	short := filepath.Join(dir, "short.dcm")
	if err := os.WriteFile(short, []byte("DICM"), 0644); err != nil {
		t.Fatal(err)
	}
	signature := filepath.Join(dir, "signature.dcm")
	if err := fixture.SignatureOnly(signature); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"valid file", valid, true},
		{"text file", notDICOM, false},
		{"shorter than preamble", short, false},
		{"signature without body", signature, true},
		{"missing file", filepath.Join(dir, "missing.dcm"), false},
		{"directory", dir, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsDICOM(tc.path); got != tc.want {
				t.Errorf("IsDICOM(%s) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func TestWalker_Recursive(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.dcm")
	b := filepath.Join(root, "sub", "b.dcm")
	writeImage(t, a, 1)
	writeImage(t, b, 2)

	tests := []struct {
		recursive bool
		want      []string
	}{
		{false, []string{a}},
		{true, []string{a, b}},
	}

	for _, tc := range tests {
		var stats WalkStats
		files, err := Walker{Recursive: tc.recursive, Stats: &stats}.Files(root)
		if err != nil {
			t.Fatalf("Files(recursive=%v) returned error: %v", tc.recursive, err)
		}
		if !slices.Equal(files, tc.want) {
			t.Errorf("Files(recursive=%v) = %v, want %v", tc.recursive, files, tc.want)
		}
		wantDirs := 1
		if tc.recursive {
			wantDirs = 2
		}
		if stats.Directories != wantDirs {
			t.Errorf("Directories(recursive=%v) = %d, want %d", tc.recursive, stats.Directories, wantDirs)
		}
	}
}

func TestWalker_LexicalOrder(t *testing.T) {
	root := t.TempDir()
	var want []string
	for _, name := range []string{"c.dcm", "a.dcm", "b.dcm"} {
		writeImage(t, filepath.Join(root, name), 1)
	}
	for _, name := range []string{"a.dcm", "b.dcm", "c.dcm"} {
		want = append(want, filepath.Join(root, name))
	}

	files, err := Walker{}.Files(root)
	if err != nil {
		t.Fatalf("Files returned error: %v", err)
	}
	if !slices.Equal(files, want) {
		t.Errorf("Files = %v, want %v", files, want)
	}
}

func TestWalker_PatternAndSignature(t *testing.T) {
	root := t.TempDir()
	writeImage(t, filepath.Join(root, "IM0001.dcm"), 1)
	writeImage(t, filepath.Join(root, "IM0002"), 2)
	if err := fixture.NotDICOM(filepath.Join(root, "README.dcm")); err != nil {
		t.Fatal(err)
	}

	metrics := observability.NewMetrics()
	var stats WalkStats
	w := Walker{Pattern: "*.dcm", Metrics: metrics, Stats: &stats}
	files, err := w.Files(root)
	if err != nil {
		t.Fatalf("Files returned error: %v", err)
	}
	want := []string{filepath.Join(root, "IM0001.dcm")}
	if !slices.Equal(files, want) {
		t.Errorf("Files = %v, want %v", files, want)
	}
	if stats.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", stats.Skipped)
	}
	if got := testutil.ToFloat64(metrics.FilesTotal.WithLabelValues(observability.ResultSkipped)); got != 1 {
		t.Errorf("skipped counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.DirectoriesTotal); got != 1 {
		t.Errorf("directories counter = %v, want 1", got)
	}
}

func TestWalker_Restartable(t *testing.T) {
	root := t.TempDir()
	writeImage(t, filepath.Join(root, "a.dcm"), 1)
	writeImage(t, filepath.Join(root, "b.dcm"), 2)

	seq := Walker{}.Walk(root)
	count := func() int {
		n := 0
		for _, err := range seq {
			if err != nil {
				t.Fatalf("walk error: %v", err)
			}
			n++
		}
		return n
	}
	if first, second := count(), count(); first != 2 || second != 2 {
		t.Errorf("walks yielded %d then %d files, want 2 and 2", first, second)
	}
}

func TestWalker_EarlyStop(t *testing.T) {
	root := t.TempDir()
	for i := range 5 {
		writeImage(t, filepath.Join(root, fmt.Sprintf("%c.dcm", 'a'+i)), i)
	}

	n := 0
	for _, err := range (Walker{}).Walk(root) {
		if err != nil {
			t.Fatalf("walk error: %v", err)
		}
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("visited %d files, want 2", n)
	}
}

func TestWalker_Errors(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.dcm")
	writeImage(t, file, 1)

	tests := []struct {
		name    string
		walker  Walker
		root    string
		wantErr bool
	}{
		{"missing root", Walker{}, filepath.Join(root, "missing"), true},
		{"root is a file", Walker{}, file, true},
		{"bad pattern", Walker{Pattern: "["}, root, true},
		{"empty directory", Walker{}, t.TempDir(), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			files, err := tc.walker.Files(tc.root)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Files error = %v, wantErr %v", err, tc.wantErr)
			}
			if !tc.wantErr && len(files) != 0 {
				t.Errorf("Files = %v, want none", files)
			}
		})
	}
}

func TestValidatePattern(t *testing.T) {
	for _, p := range []string{"*", "*.dcm", "IM[0-9]*", "?"} {
		if err := ValidatePattern(p); err != nil {
			t.Errorf("ValidatePattern(%q) returned error: %v", p, err)
		}
	}
	if err := ValidatePattern("[a-"); err == nil {
		t.Error("ValidatePattern([a-) should return error")
	}
}
