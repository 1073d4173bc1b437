package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func scanDir(t *testing.T, dir string) *Tracker {
	t.Helper()
	tr := NewTracker()
	tr.SetScanPaths([]string{dir})
	if err := tr.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return tr
}

func TestScanJavaScript(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.js", `
const dbUrl = process.env.DATABASE_URL;
const apiKey = process.env["API_KEY"];
const secret = process.env['SECRET_KEY'];
const port = process.env.PORT || 3000;
const denoVar = Deno.env.get("DENO_VAR");
const viteVar = import.meta.env.VITE_API_URL;
`)

	tr := scanDir(t, dir)
	for _, name := range []string{"DATABASE_URL", "API_KEY", "SECRET_KEY", "PORT", "DENO_VAR", "VITE_API_URL"} {
		if len(tr.Usages(name)) == 0 {
			t.Errorf("%s not found", name)
		}
	}
}

func TestScanPython(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", `
import os
db = os.environ["DATABASE_URL"]
key = os.environ.get("API_KEY")
port = os.getenv('PORT', 8000)
home = environ['HOME_DIR']
`)

	tr := scanDir(t, dir)
	for _, name := range []string{"DATABASE_URL", "API_KEY", "PORT", "HOME_DIR"} {
		if len(tr.Usages(name)) == 0 {
			t.Errorf("%s not found", name)
		}
	}
}

func TestScanGo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", `
package main
import "os"
func main() {
	db := os.Getenv("DATABASE_URL")
	key, ok := os.LookupEnv("API_KEY")
	os.Setenv("MODE", "prod")
	_ = db; _ = key; _ = ok
}
`)

	tr := scanDir(t, dir)
	for _, name := range []string{"DATABASE_URL", "API_KEY", "MODE"} {
		if len(tr.Usages(name)) == 0 {
			t.Errorf("%s not found", name)
		}
	}
}

func TestScanShellSkipsBuiltins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "run.sh", `
# comment with $COMMENTED
echo "$DATABASE_URL"
export API_KEY=abc
value=${CONFIG_PATH:-/etc/app}
echo $PWD $RANDOM $BASH_SOURCE $1
`)

	tr := scanDir(t, dir)
	for _, name := range []string{"DATABASE_URL", "API_KEY", "CONFIG_PATH"} {
		if len(tr.Usages(name)) == 0 {
			t.Errorf("%s not found", name)
		}
	}
	for _, name := range []string{"PWD", "RANDOM", "BASH_SOURCE", "1", "COMMENTED"} {
		if len(tr.Usages(name)) != 0 {
			t.Errorf("%s should be skipped", name)
		}
	}
}

func TestScanBatchSkipsBuiltins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "run.bat", `
REM uses %IGNORED%
set APP_MODE=prod
echo %DATABASE_URL% %ERRORLEVEL% %DATE%
`)

	tr := scanDir(t, dir)
	for _, name := range []string{"APP_MODE", "DATABASE_URL"} {
		if len(tr.Usages(name)) == 0 {
			t.Errorf("%s not found", name)
		}
	}
	for _, name := range []string{"ERRORLEVEL", "DATE", "IGNORED"} {
		if len(tr.Usages(name)) != 0 {
			t.Errorf("%s should be skipped", name)
		}
	}
}

func TestScanMakefile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Makefile", `
build:
	echo $(DATABASE_URL) ${API_KEY}
	echo $$RUNTIME_VAR
	echo $(MAKE) $(SHELL)
`)

	tr := scanDir(t, dir)
	for _, name := range []string{"DATABASE_URL", "API_KEY", "RUNTIME_VAR"} {
		if len(tr.Usages(name)) == 0 {
			t.Errorf("%s not found", name)
		}
	}
	for _, name := range []string{"MAKE", "SHELL"} {
		if len(tr.Usages(name)) != 0 {
			t.Errorf("%s should be skipped", name)
		}
	}
}

func TestShebangFallsBackToShell(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "deploy", "#!/bin/bash\necho $DEPLOY_TARGET\n")

	tr := scanDir(t, dir)
	if len(tr.Usages("DEPLOY_TARGET")) == 0 {
		t.Error("DEPLOY_TARGET not found in shebang script")
	}
}

func TestUsageCountsAndUnused(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.js", `
const a1 = process.env.A;
const a2 = process.env.A;
`)
	writeFile(t, dir, "lib.py", `
a = os.getenv("A")
b = os.getenv("B")
`)

	tr := scanDir(t, dir)
	counts := tr.UsageCounts()
	if counts["A"] != 3 {
		t.Errorf("A count = %d, want 3", counts["A"])
	}
	if counts["B"] != 1 {
		t.Errorf("B count = %d, want 1", counts["B"])
	}
	unused := tr.FindUnused([]string{"A", "B", "C"})
	if len(unused) != 1 || unused[0] != "C" {
		t.Errorf("unused = %v, want [C]", unused)
	}
}

func TestIgnoredDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "node_modules/dep/index.js", "const x = process.env.HIDDEN;")
	writeFile(t, dir, "src/app.js", "const x = process.env.VISIBLE;")

	tr := scanDir(t, dir)
	if len(tr.Usages("HIDDEN")) != 0 {
		t.Error("node_modules should be ignored")
	}
	if len(tr.Usages("VISIBLE")) == 0 {
		t.Error("src should be scanned")
	}
}

func TestCustomIgnorePattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "generated/app.js", "const x = process.env.GEN;")

	tr := NewTracker()
	tr.SetScanPaths([]string{dir})
	tr.AddIgnorePattern("generated")
	if err := tr.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(tr.Usages("GEN")) != 0 {
		t.Error("custom ignore pattern not applied")
	}
}

func TestSkipsBinaryFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.sh")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, '$', 'X', 0x80}, 0o644); err != nil {
		t.Fatal(err)
	}

	tr := scanDir(t, dir)
	if len(tr.UsedVariables()) != 0 {
		t.Errorf("binary file produced usages: %v", tr.UsedVariables())
	}
}

func TestSkipsVanishedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "kept.py", `key = os.getenv("API_KEY")`)

	tr := NewTracker()
	tr.SetScanPaths([]string{dir})
	// A file that disappears between the walk and the read must not
	// abort the scan.
	if err := tr.scanFile(filepath.Join(dir, "gone.py")); err != nil {
		t.Fatalf("scanFile on missing file: %v", err)
	}
	if err := tr.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(tr.Usages("API_KEY")) != 1 {
		t.Errorf("API_KEY usages = %d, want 1", len(tr.Usages("API_KEY")))
	}
}

func TestDeduplicatesIdenticalUsages(t *testing.T) {
	dir := t.TempDir()
	// Same variable matched by two patterns on the same line.
	writeFile(t, dir, "run.sh", "export CONFIG_PATH=$CONFIG_PATH\n")

	tr := scanDir(t, dir)
	if got := len(tr.Usages("CONFIG_PATH")); got != 1 {
		t.Errorf("usages = %d, want 1", got)
	}
}

func TestContextPreservation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.js", "\nconst dbUrl = process.env.DATABASE_URL;\n    const apiKey = process.env.API_KEY; // Indented line\n")

	tr := scanDir(t, dir)
	db := tr.Usages("DATABASE_URL")
	if len(db) != 1 || db[0].Context != "const dbUrl = process.env.DATABASE_URL;" {
		t.Errorf("db usage = %+v", db)
	}
	if db[0].Line != 2 {
		t.Errorf("line = %d, want 2", db[0].Line)
	}
	api := tr.Usages("API_KEY")
	if len(api) != 1 || !strings.HasPrefix(api[0].Context, "const apiKey") {
		t.Errorf("api usage = %+v", api)
	}
}

func TestScanSingleFilePath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "only.rb", `url = ENV["SERVICE_URL"]`)

	tr := NewTracker()
	tr.SetScanPaths([]string{path})
	if err := tr.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(tr.Usages("SERVICE_URL")) != 1 {
		t.Error("SERVICE_URL not found when scanning a single file")
	}
}
