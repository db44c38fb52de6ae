package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/easyrename/internal/fieldspec"
)

// FileName 是配置文件的固定文件名。
const FileName = "easyrename.yaml"

const (
	// ErrCodeNotFound 表示未给目录参数，且 cwd 下没有 easyrename.yaml。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingPath 表示未给目录参数，但配置文件缺少 path 字段。
	ErrCodeMissingPath = "config_missing_path"
	// ErrCodeInvalidFieldSpec 表示 fields 无法解析。
	ErrCodeInvalidFieldSpec = "invalid_field_spec"
	// ErrCodeInvalidFilter 表示 filter 不是合法的正则。
	ErrCodeInvalidFilter = "invalid_filter"
	// ErrCodeInvalidDelimiter 表示分隔符为空或包含路径分隔符。
	ErrCodeInvalidDelimiter = "invalid_delimiter"
	// ErrCodeDirNotFound 表示目标目录不存在或不是目录。
	ErrCodeDirNotFound = "dir_not_found"
)

// 内置默认值（CLI 与配置文件都未指定时）。
const (
	DefaultDelimiter = " "
	DefaultFields    = "1"
	DefaultExtension = "*"
	DefaultFilter    = "*"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// CLIArgs 是命令行给出的值，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --yes=false 必须能覆盖 yes: true。
type CLIArgs struct {
	Path string

	Delimiter    string
	DelimiterSet bool

	Fields    string
	FieldsSet bool

	Extension    string
	ExtensionSet bool

	Filter    string
	FilterSet bool

	Verbose    bool
	VerboseSet bool

	Yes    bool
	YesSet bool

	DryRun    bool
	DryRunSet bool

	LogLevel    string
	LogLevelSet bool

	LogFormat    string
	LogFormatSet bool

	Report    string
	ReportSet bool
}

// FileConfig 对应 easyrename.yaml 的解析结构。
// 指针字段区分“未写”与“写了零值”（例如 delimiter: "" 必须报错而不是回落默认）。
type FileConfig struct {
	Path      string  `yaml:"path"`
	Delimiter *string `yaml:"delimiter"`
	Fields    *string `yaml:"fields"`
	Extension *string `yaml:"extension"`
	Filter    *string `yaml:"filter"`
	Verbose   *bool   `yaml:"verbose"`
	Yes       *bool   `yaml:"yes"`
	DryRun    *bool   `yaml:"dry_run"`
	LogLevel  string  `yaml:"log_level"`
	LogFormat string  `yaml:"log_format"`
	Report    string  `yaml:"report"`
}

// EffectiveConfig 是合并并校验后的最终配置。
// 构造后不再修改；Fields 与 Filter 已解析/编译，下游直接消费。
type EffectiveConfig struct {
	Dir string

	Delimiter string
	Fields    fieldspec.Spec
	Extension string
	Filter    *regexp.Regexp // nil 表示不过滤

	Verbose   bool
	AssumeYes bool
	DryRun    bool

	LogLevel  string
	LogFormat string

	// ReportPath 为空表示不写报告文件。
	ReportPath string
	// ConfigFile 是实际读到的配置文件（不存在时为空），扫描时排除。
	ConfigFile string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		return fmt.Sprintf("%s：配置文件 %q 缺少必填字段 path", e.Code, e.Path)
	case ErrCodeDirNotFound:
		return fmt.Sprintf("%s：目录 %q 不存在或不是目录", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供目录：尝试读取 <dir>/easyrename.yaml（可选）
// 2) CLI 未提供目录：必须读取 <cwd>/easyrename.yaml（必选），且其中必须包含 path
//
// 覆盖优先级（固定）：CLI 显式指定 > 配置文件 > 内置默认。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	if strings.TrimSpace(cli.Path) != "" {
		dir := absCleanFrom(cwdAbs, cli.Path)
		if err := checkDir(dir); err != nil {
			return EffectiveConfig{}, err
		}
		cfgPath := filepath.Join(dir, FileName)

		fc, exists, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			cfgPath = ""
		}
		return merge(cwdAbs, dir, cli, fc, cfgPath)
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if strings.TrimSpace(fc.Path) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}

	dir := absCleanFrom(cwdAbs, fc.Path)
	if err := checkDir(dir); err != nil {
		return EffectiveConfig{}, err
	}
	return merge(cwdAbs, dir, cli, fc, cfgPath)
}

func checkDir(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return &Error{Code: ErrCodeDirNotFound, Path: dir, Err: err}
	}
	if !fi.IsDir() {
		return &Error{Code: ErrCodeDirNotFound, Path: dir}
	}
	return nil
}

func merge(cwdAbs, dir string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	delim := pickString(cli.Delimiter, cli.DelimiterSet, fc.Delimiter, DefaultDelimiter)
	if err := validateDelimiter(delim); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalidDelimiter, Path: cfgPath, Err: err}
	}

	fieldsRaw := pickString(cli.Fields, cli.FieldsSet, fc.Fields, DefaultFields)
	spec, err := fieldspec.Parse(fieldsRaw)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalidFieldSpec, Path: cfgPath, Err: err}
	}

	ext := strings.TrimSpace(pickString(cli.Extension, cli.ExtensionSet, fc.Extension, DefaultExtension))
	if ext == "" {
		ext = DefaultExtension
	}

	filterRaw := pickString(cli.Filter, cli.FilterSet, fc.Filter, DefaultFilter)
	var filter *regexp.Regexp
	if filterRaw != "" && filterRaw != DefaultFilter {
		filter, err = regexp.Compile(filterRaw)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalidFilter, Path: cfgPath, Err: fmt.Errorf("filter %q 不是合法的正则：%w", filterRaw, err)}
		}
	}

	logLevel := strings.ToLower(pickString(cli.LogLevel, cli.LogLevelSet, nonEmpty(fc.LogLevel), DefaultLogLevel))
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("log_level 只能是 debug/info/warn/error，实际是 %q", logLevel)}
	}

	logFormat := strings.ToLower(pickString(cli.LogFormat, cli.LogFormatSet, nonEmpty(fc.LogFormat), DefaultLogFormat))
	switch logFormat {
	case "text", "json":
	default:
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("log_format 只能是 text/json，实际是 %q", logFormat)}
	}

	// 报告路径：CLI 相对 cwd；配置文件里的相对路径同样以 cwd 为基准。
	report := strings.TrimSpace(pickString(cli.Report, cli.ReportSet, nonEmpty(fc.Report), ""))
	if report != "" {
		report = absCleanFrom(cwdAbs, report)
	}

	return EffectiveConfig{
		Dir:        dir,
		Delimiter:  delim,
		Fields:     spec,
		Extension:  ext,
		Filter:     filter,
		Verbose:    pickBool(cli.Verbose, cli.VerboseSet, fc.Verbose),
		AssumeYes:  pickBool(cli.Yes, cli.YesSet, fc.Yes),
		DryRun:     pickBool(cli.DryRun, cli.DryRunSet, fc.DryRun),
		LogLevel:   logLevel,
		LogFormat:  logFormat,
		ReportPath: report,
		ConfigFile: cfgPath,
	}, nil
}

func validateDelimiter(d string) error {
	if d == "" {
		return fmt.Errorf("delimiter 不能为空")
	}
	if strings.ContainsRune(d, '/') || strings.ContainsRune(d, filepath.Separator) {
		return fmt.Errorf("delimiter 不能包含路径分隔符：%q", d)
	}
	return nil
}

func pickString(cliVal string, cliSet bool, fileVal *string, def string) string {
	if cliSet {
		return cliVal
	}
	if fileVal != nil {
		return *fileVal
	}
	return def
}

func pickBool(cliVal, cliSet bool, fileVal *bool) bool {
	if cliSet {
		return cliVal
	}
	if fileVal != nil {
		return *fileVal
	}
	return false
}

func nonEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）；未知字段视为错误。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			// 空文件：等同于什么都没写。
			return FileConfig{}, true, nil
		}
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
