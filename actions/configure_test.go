package actions

import (
	"bytes"
	"io/ioutil"
	"os"
	"strings"
	"testing"

	"github.com/relloyd/totes/config"
)

func TestRunConfigSetListRemove(t *testing.T) {
	dir, err := ioutil.TempDir("", "totes-actions")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	f := config.NewConfigFileWithDir(dir, config.MainFileFullName)
	out := &bytes.Buffer{}
	if err = RunConfigSet(&ConfigSetConfig{ConfigFile: f, Key: "insert-batch-size", Value: "250", Out: out}); err != nil {
		t.Fatal(err)
	}
	// Existing keys need force.
	if err = RunConfigSet(&ConfigSetConfig{ConfigFile: f, Key: "insert-batch-size", Value: "500", Out: out}); err == nil {
		t.Fatal("expected error overwriting without force")
	}
	if err = RunConfigSet(&ConfigSetConfig{ConfigFile: f, Key: "insert-batch-size", Value: "500", Force: true, Out: out}); err != nil {
		t.Fatal(err)
	}
	if err = RunConfigSet(&ConfigSetConfig{ConfigFile: f, Key: "colour", Value: "blue", Out: out}); err == nil {
		t.Fatal("expected error for unknown setting")
	}
	out.Reset()
	if err = RunConfigList(f, out); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != "insert-batch-size=500" {
		t.Fatalf("unexpected list output %q", got)
	}
	if err = RunConfigRemove(&ConfigRemoveConfig{ConfigFile: f, Key: "insert-batch-size", Out: out}); err != nil {
		t.Fatal(err)
	}
	if err = RunConfigRemove(&ConfigRemoveConfig{ConfigFile: f, Key: "insert-batch-size", Out: out}); err == nil {
		t.Fatal("expected error removing a missing key")
	}
	if err = RunConfigSet(&ConfigSetConfig{ConfigFile: f, Out: out}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestWriteOutput(t *testing.T) {
	out := &bytes.Buffer{}
	w := &WatermarkResult{Role: "processed_bucket", Watermark: "2023-07-31T11:24:11.422525"}
	if err := WriteOutput(out, w, OutputFormatYAML); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "role: processed_bucket") || !strings.Contains(out.String(), "2023-07-31T11:24:11.422525") {
		t.Fatalf("unexpected yaml %q", out.String())
	}
	out.Reset()
	if err := WriteOutput(out, w, OutputFormatJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"role": "processed_bucket"`) {
		t.Fatalf("unexpected json %q", out.String())
	}
	if err := WriteOutput(out, w, "xml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
