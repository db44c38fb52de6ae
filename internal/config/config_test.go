package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/John-Robertt/easyrename/internal/fieldspec"
)

func TestLoadEffective_ConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_ConfigMissingPath(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte("delimiter: \"_\"\n"))

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeMissingPath {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeMissingPath, err, Code(err))
	}
}

func TestLoadEffective_Defaults(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{Path: "."})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Dir != filepath.Clean(cwd) {
		t.Fatalf("期望 dir=%q，实际=%q", cwd, eff.Dir)
	}
	if eff.Delimiter != DefaultDelimiter {
		t.Fatalf("期望默认分隔符为空格，实际=%q", eff.Delimiter)
	}
	if diff := cmp.Diff([]int{1}, eff.Fields.Indices()); diff != "" {
		t.Fatalf("默认 fields 不符合预期 (-want +got):\n%s", diff)
	}
	if eff.Extension != DefaultExtension || eff.Filter != nil {
		t.Fatalf("默认不应过滤：ext=%q filter=%v", eff.Extension, eff.Filter)
	}
	if eff.AssumeYes || eff.DryRun || eff.Verbose {
		t.Fatalf("布尔开关默认应为 false：%+v", eff)
	}
	if eff.LogLevel != "info" || eff.LogFormat != "text" {
		t.Fatalf("日志默认值不符合预期：%q/%q", eff.LogLevel, eff.LogFormat)
	}
	if eff.ConfigFile != "" || eff.ReportPath != "" {
		t.Fatalf("不存在配置文件时 ConfigFile 应为空：%+v", eff)
	}
}

func TestLoadEffective_FileValuesAndCLIOverride(t *testing.T) {
	cwd := t.TempDir()
	mustMkdir(t, filepath.Join(cwd, "docs"))
	writeFile(t, filepath.Join(cwd, FileName), []byte(`
path: docs
delimiter: "_"
fields: "3,1-2"
extension: .pdf
filter: "^20"
yes: true
dry_run: true
log_format: json
report: out/report.json
`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Dir != filepath.Join(cwd, "docs") {
		t.Fatalf("期望 dir=%q，实际=%q", filepath.Join(cwd, "docs"), eff.Dir)
	}
	if eff.Delimiter != "_" || eff.Fields.String() != "3,1,2" || eff.Extension != ".pdf" {
		t.Fatalf("配置文件值未生效：%+v", eff)
	}
	if eff.Filter == nil || !eff.Filter.MatchString("2024_x.pdf") {
		t.Fatalf("filter 未编译：%v", eff.Filter)
	}
	if !eff.AssumeYes || !eff.DryRun || eff.LogFormat != "json" {
		t.Fatalf("配置文件布尔/日志值未生效：%+v", eff)
	}
	if eff.ReportPath != filepath.Join(cwd, "out", "report.json") {
		t.Fatalf("report 应以 cwd 为基准：%q", eff.ReportPath)
	}
	if eff.ConfigFile != filepath.Join(cwd, FileName) {
		t.Fatalf("ConfigFile 不符合预期：%q", eff.ConfigFile)
	}

	// CLI 显式指定（包括显式 false）覆盖配置文件。
	eff2, err := LoadEffective(cwd, CLIArgs{
		Delimiter: "-", DelimiterSet: true,
		Fields: "2", FieldsSet: true,
		Yes: false, YesSet: true,
		DryRun: false, DryRunSet: true,
		Filter: "*", FilterSet: true,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff2.Delimiter != "-" || eff2.Fields.String() != "2" {
		t.Fatalf("CLI 值未覆盖：%+v", eff2)
	}
	if eff2.AssumeYes || eff2.DryRun {
		t.Fatalf("--yes=false/--dry-run=false 应覆盖配置文件：%+v", eff2)
	}
	if eff2.Filter != nil {
		t.Fatalf("filter=* 应视为不过滤")
	}
	if eff2.Extension != ".pdf" {
		t.Fatalf("未在 CLI 指定的项应保留配置文件值：%q", eff2.Extension)
	}
}

func TestLoadEffective_CLIPath_ConfigOptionalButRead(t *testing.T) {
	cwd := t.TempDir()
	root := filepath.Join(cwd, "root")
	mustMkdir(t, root)
	writeFile(t, filepath.Join(root, FileName), []byte("fields: \"2,1\"\n"))

	eff, err := LoadEffective(cwd, CLIArgs{Path: root})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Fields.String() != "2,1" {
		t.Fatalf("<dir>/%s 应被读取：fields=%q", FileName, eff.Fields.String())
	}
}

func TestLoadEffective_Errors(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
		cli  CLIArgs
		want string
	}{
		{name: "bad yaml", yaml: "path: [", want: ErrCodeInvalid},
		{name: "unknown key", yaml: "path: .\nrecursive: true\n", want: ErrCodeInvalid},
		{name: "bad fields", yaml: "path: .\nfields: \"1,,2\"\n", want: ErrCodeInvalidFieldSpec},
		{name: "bad fields from cli", yaml: "path: .\n", cli: CLIArgs{Fields: "0", FieldsSet: true}, want: ErrCodeInvalidFieldSpec},
		{name: "bad filter", yaml: "path: .\nfilter: \"(\"\n", want: ErrCodeInvalidFilter},
		{name: "empty delimiter", yaml: "path: .\ndelimiter: \"\"\n", want: ErrCodeInvalidDelimiter},
		{name: "slash delimiter", yaml: "path: .\n", cli: CLIArgs{Delimiter: "/", DelimiterSet: true}, want: ErrCodeInvalidDelimiter},
		{name: "missing dir", yaml: "path: nope\n", want: ErrCodeDirNotFound},
		{name: "bad log level", yaml: "path: .\nlog_level: loud\n", want: ErrCodeInvalid},
		{name: "bad log format", yaml: "path: .\n", cli: CLIArgs{LogFormat: "xml", LogFormatSet: true}, want: ErrCodeInvalid},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cwd := t.TempDir()
			writeFile(t, filepath.Join(cwd, FileName), []byte(tc.yaml))

			_, err := LoadEffective(cwd, tc.cli)
			if Code(err) != tc.want {
				t.Fatalf("期望 %q，实际 err=%v (code=%q)", tc.want, err, Code(err))
			}
		})
	}
}

func TestLoadEffective_InvalidFieldSpecKeepsTypedError(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{Path: cwd, Fields: "1-3-5", FieldsSet: true})
	var se *fieldspec.InvalidSpecError
	if !errors.As(err, &se) {
		t.Fatalf("期望可通过 errors.As 取到 InvalidSpecError，实际：%T %v", err, err)
	}
}

func TestLoadEffective_CLIPathIsFile(t *testing.T) {
	cwd := t.TempDir()
	f := filepath.Join(cwd, "file.txt")
	writeFile(t, f, []byte("x"))

	_, err := LoadEffective(cwd, CLIArgs{Path: f})
	if Code(err) != ErrCodeDirNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeDirNotFound, err, Code(err))
	}
}

func TestLoadEffective_EmptyConfigFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), nil)

	eff, err := LoadEffective(cwd, CLIArgs{Path: cwd})
	if err != nil {
		t.Fatalf("空配置文件不应报错：%v", err)
	}
	if eff.ConfigFile == "" {
		t.Fatalf("空配置文件仍应被记录为 ConfigFile")
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}

func mustMkdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
}
