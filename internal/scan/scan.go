package scan

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/John-Robertt/easyrename/internal/domain"
)

// AnyExtension 表示不按扩展名过滤。
const AnyExtension = "*"

// Filter 描述候选文件的筛选条件，两项同时满足才会列出。
type Filter struct {
	// Extension 为空或 "*" 时不过滤；否则文件扩展名（含 '.'）须以它结尾，大小写不敏感。
	Extension string
	// Pattern 为 nil 时不过滤；否则在完整文件名上做 search（不要求整串匹配）。
	Pattern *regexp.Regexp
}

// Match 判断文件是否满足筛选条件。
func (f Filter) Match(e domain.FileEntry) bool {
	if f.Extension != "" && f.Extension != AnyExtension {
		if !strings.HasSuffix(strings.ToLower(e.Ext), strings.ToLower(f.Extension)) {
			return false
		}
	}
	if f.Pattern != nil && !f.Pattern.MatchString(e.Name) {
		return false
	}
	return true
}

// ListFiles 列出 dir 下（不递归）满足 f 的普通文件。
//
// 规则（硬约束）：
// - 子目录一律跳过
// - exclude 中的文件名永不列出（配置文件、报告文件），可以是绝对路径或相对 dir 的名字
// - 输出按文件名排序
//
// 注意：扫描阶段只做 ReadDir，不读文件内容。
func ListFiles(dir string, f Filter, exclude []string) ([]domain.FileEntry, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	excluded := buildExcluded(dir, exclude)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]domain.FileEntry, 0, len(entries))
	for _, d := range entries {
		if d.IsDir() {
			continue
		}
		name := d.Name()
		if _, skip := excluded[name]; skip {
			continue
		}
		e := domain.NewFileEntry(dir, name)
		if !f.Match(e) {
			continue
		}
		files = append(files, e)
	}

	// ReadDir 已按名字排序；这里再排一次，不依赖平台行为。
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// buildExcluded 只保留直接位于 dir 下的条目（其他位置的文件本来就不会被列出）。
func buildExcluded(dir string, exclude []string) map[string]struct{} {
	out := make(map[string]struct{}, len(exclude))
	for _, x := range exclude {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if !filepath.IsAbs(x) {
			x = filepath.Join(dir, x)
		}
		x = filepath.Clean(x)
		if filepath.Dir(x) != dir {
			continue
		}
		out[filepath.Base(x)] = struct{}{}
	}
	return out
}
