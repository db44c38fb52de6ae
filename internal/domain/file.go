package domain

import (
	"path/filepath"
	"strings"
)

// FileEntry 描述一次扫描得到的候选文件（只做 ReadDir，不读内容）。
//
// 不变量：
// - AbsPath 必须是 clean + absolute
// - Name == Base + Ext（按最后一个 '.' 切分；前导 '.' 不算扩展名）
type FileEntry struct {
	Name    string
	AbsPath string
	Base    string // filename without ext
	Ext     string // ".txt"，无扩展名时为空
}

// SplitExt 按最后一个 '.' 把文件名切成 (base, ext)，ext 含前导 '.'。
//
// 与 filepath.Ext 的区别：前导的 '.' 不算扩展名分隔符（".bashrc" 没有扩展名，
// "..a" 也没有），这样隐藏文件的整个名字都参与字段切分。
// 以 '.' 结尾的名字得到 ext == "."。
func SplitExt(name string) (base, ext string) {
	lead := 0
	for lead < len(name) && name[lead] == '.' {
		lead++
	}
	i := strings.LastIndexByte(name, '.')
	if i < lead {
		return name, ""
	}
	return name[:i], name[i:]
}

// NewFileEntry 由目录与文件名构造 FileEntry。dir 应已是 clean + absolute。
func NewFileEntry(dir, name string) FileEntry {
	base, ext := SplitExt(name)
	return FileEntry{
		Name:    name,
		AbsPath: filepath.Join(dir, name),
		Base:    base,
		Ext:     ext,
	}
}
