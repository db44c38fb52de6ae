package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/easyrename/internal/domain"
	"github.com/John-Robertt/easyrename/internal/fieldspec"
)

// ErrEmptyDelimiter 表示分隔符为空（空分隔符无法定义字段）。
var ErrEmptyDelimiter = errors.New("分隔符不能为空")

// ErrEmptySpec 表示字段选择未经解析（零值 Spec）。
var ErrEmptySpec = errors.New("字段选择为空")

// FieldLookupError 表示某个字段序号超出了该文件名切分出的字段数。
// 只影响这一个文件：上层应跳过并告警，而不是中止整批。
type FieldLookupError struct {
	File      string
	Index     int // 1-based
	Available int
}

func (e *FieldLookupError) Error() string {
	return fmt.Sprintf("文件 %q 只有 %d 个字段，无法选取第 %d 个字段", e.File, e.Available, e.Index)
}

// IsFieldLookup 判断 err 是否为 *FieldLookupError。
func IsFieldLookup(err error) bool {
	var e *FieldLookupError
	return errors.As(err, &e)
}

// BuildTarget 按字段选择生成新文件名（纯函数，不触碰文件系统）。
//
// 规则：
// - 按最后一个 '.' 分出扩展名（见 domain.SplitExt），扩展名原样保留
// - base 按 delim 字面切分，首尾空字段保留为空串
// - 按 spec 的顺序取字段（1-based），再用 delim 连接
func BuildTarget(filename string, spec fieldspec.Spec, delim string) (domain.RenameTarget, error) {
	if delim == "" {
		return domain.RenameTarget{}, ErrEmptyDelimiter
	}

	base, ext := domain.SplitExt(filename)
	fields := strings.Split(base, delim)

	selected := make([]string, 0, spec.Len())
	for i := 0; i < spec.Len(); i++ {
		n := spec.At(i)
		if n < 1 || n > len(fields) {
			return domain.RenameTarget{}, &FieldLookupError{File: filename, Index: n, Available: len(fields)}
		}
		selected = append(selected, fields[n-1])
	}

	return domain.RenameTarget{
		Original: filename,
		Proposed: strings.Join(selected, delim) + ext,
	}, nil
}

// Failure 是某个文件在规划阶段的失败（目前只有 FieldLookupError）。
type Failure struct {
	File domain.FileEntry
	Err  error
}

// Planned 把扫描结果与目标名配对（执行阶段需要绝对路径）。
type Planned struct {
	File   domain.FileEntry
	Target domain.RenameTarget
}

// Plan 对一批文件逐个调用 BuildTarget。
// 单个文件失败记录到 failures，不影响其他文件；输出保持输入顺序。
// 只有 ErrEmptyDelimiter / ErrEmptySpec 这种对整批都无效的错误才直接返回。
func Plan(files []domain.FileEntry, spec fieldspec.Spec, delim string) (planned []Planned, failures []Failure, err error) {
	if delim == "" {
		return nil, nil, ErrEmptyDelimiter
	}
	if spec.IsZero() {
		return nil, nil, ErrEmptySpec
	}

	planned = make([]Planned, 0, len(files))
	for _, f := range files {
		t, e := BuildTarget(f.Name, spec, delim)
		if e != nil {
			failures = append(failures, Failure{File: f, Err: e})
			continue
		}
		planned = append(planned, Planned{File: f, Target: t})
	}
	return planned, failures, nil
}
