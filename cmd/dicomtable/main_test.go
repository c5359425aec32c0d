package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/kballard/go-shellquote"

	"github.com/mrsinham/dicomtable/internal/dicom/fixture"
	"github.com/mrsinham/dicomtable/internal/store"
)

// testContext holds state for a single scenario
type testContext struct {
	tmpDir   string
	exitCode int
	output   string
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	tc := &testContext{}

	sc.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tmpDir, err := os.MkdirTemp("", "dicomtable-e2e-*")
		if err != nil {
			return ctx, err
		}
		tc.tmpDir = tmpDir
		return ctx, nil
	})

	sc.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if tc.tmpDir != "" {
			os.RemoveAll(tc.tmpDir)
		}
		return ctx, nil
	})

	sc.Step(`^a series of (\d+) images in "([^"]*)"$`, tc.aSeriesOfImagesIn)
	sc.Step(`^a truncated DICOM file "([^"]*)"$`, tc.aTruncatedDICOMFile)
	sc.Step(`^a text file "([^"]*)"$`, tc.aTextFile)
	sc.Step(`^a config file "([^"]*)" with:$`, tc.aConfigFileWith)
	sc.Step(`^I run "(.*)"$`, tc.iRun)
	sc.Step(`^the exit code should be (\d+)$`, tc.theExitCodeShouldBe)
	sc.Step(`^the output should contain "(.*)"$`, tc.theOutputShouldContain)
	sc.Step(`^the output should not contain "(.*)"$`, tc.theOutputShouldNotContain)
	sc.Step(`^"([^"]*)" should exist$`, tc.shouldExist)
	sc.Step(`^"([^"]*)" should contain "([^"]*)"$`, tc.fileShouldContain)
	sc.Step(`^the database "([^"]*)" should have (\d+) rows? and (\d+) failures?$`, tc.theDatabaseShouldHave)
}

func (tc *testContext) path(p string) string {
	return filepath.Join(tc.tmpDir, p)
}

func (tc *testContext) aSeriesOfImagesIn(n int, dir string) error {
	_, err := fixture.Series(tc.path(dir), n)
	return err
}

func (tc *testContext) aTruncatedDICOMFile(name string) error {
	path := tc.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return fixture.Truncated(path, fixture.Image{
		AccessionNumber: "ACC00001",
		InstanceNumber:  99,
	})
}

func (tc *testContext) aTextFile(name string) error {
	path := tc.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return fixture.NotDICOM(path)
}

func (tc *testContext) aConfigFileWith(name string, doc *godog.DocString) error {
	content := strings.ReplaceAll(doc.Content, "{tmpdir}", tc.tmpDir)
	return os.WriteFile(tc.path(name), []byte(content), 0644)
}

func (tc *testContext) iRun(command string) error {
	command = strings.ReplaceAll(command, "{tmpdir}", tc.tmpDir)
	args, err := shellquote.Split(command)
	if err != nil {
		return fmt.Errorf("split command: %w", err)
	}

	var output bytes.Buffer
	tc.exitCode = run(args, &output, &output)
	tc.output = output.String()
	return nil
}

func (tc *testContext) theExitCodeShouldBe(expected int) error {
	if tc.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nOutput:\n%s", expected, tc.exitCode, tc.output)
	}
	return nil
}

func (tc *testContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(tc.output, expected) {
		return fmt.Errorf("output does not contain %q\nOutput:\n%s", expected, tc.output)
	}
	return nil
}

func (tc *testContext) theOutputShouldNotContain(unexpected string) error {
	if strings.Contains(tc.output, unexpected) {
		return fmt.Errorf("output contains %q\nOutput:\n%s", unexpected, tc.output)
	}
	return nil
}

func (tc *testContext) shouldExist(name string) error {
	if _, err := os.Stat(tc.path(name)); os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", name)
	}
	return nil
}

func (tc *testContext) fileShouldContain(name, expected string) error {
	data, err := os.ReadFile(tc.path(name))
	if err != nil {
		return err
	}
	if !strings.Contains(string(data), expected) {
		return fmt.Errorf("%s does not contain %q", name, expected)
	}
	return nil
}

func (tc *testContext) theDatabaseShouldHave(name string, rows, failures int) error {
	db, err := store.Load(tc.path(name))
	if err != nil {
		return err
	}
	if db.Records.Len() != rows {
		return fmt.Errorf("expected %d rows, got %d", rows, db.Records.Len())
	}
	if got := len(db.Records.Failures()); got != failures {
		return fmt.Errorf("expected %d failures, got %d", failures, got)
	}
	return nil
}

func TestParseRows(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []int
		wantErr bool
	}{
		{name: "single", args: []string{"1"}, want: []int{0}},
		{name: "several keep order", args: []string{"3", "1"}, want: []int{2, 0}},
		{name: "zero", args: []string{"0"}, wantErr: true},
		{name: "past end", args: []string{"4"}, wantErr: true},
		{name: "not a number", args: []string{"x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRows(tt.args, 3)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRows() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("parseRows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("ÉÉÉÉÉÉ", 4); got != "ÉÉÉ…" {
		t.Errorf("truncate() = %q, want %q", got, "ÉÉÉ…")
	}
}
