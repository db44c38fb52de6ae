// Package fieldspec 解析 --fields 的字段选择语法（例如 "1,3-5,7"）。
//
// 语法：
//
//	spec  := token (sep token)*
//	token := digits
//	sep   := ',' | '-'
//
// '-' 引入一个范围：起点是它前面的数字段，终点是它后面的数字段；
// 范围两端都包含（"2-4" → 2,3,4）。输出顺序即书写顺序，不去重、不排序。
package fieldspec

import (
	"strconv"
	"strings"
)

// MaxIndex 是单个字段序号的上限。
// 文件名本身受 NAME_MAX 约束，远到不了这个量级；上限只用于阻止 "1-999999999" 这类输入展开出巨大切片。
const MaxIndex = 1024

// Spec 是解析后的字段序号序列（1-based，允许重复）。
// 构造后不可变：Indices 返回副本。
type Spec struct {
	idx []int
}

// Indices 返回序号序列的副本。
func (s Spec) Indices() []int {
	return append([]int(nil), s.idx...)
}

func (s Spec) Len() int { return len(s.idx) }

// At 返回第 i 个（0-based）序号。
func (s Spec) At(i int) int { return s.idx[i] }

// IsZero 表示 Spec 未经解析（零值）。零值不是合法的选择。
func (s Spec) IsZero() bool { return len(s.idx) == 0 }

// String 返回规范形式：全部展开、逗号连接、无范围。
// 对任意合法 Spec，Parse(s.String()) 得到相同序列。
func (s Spec) String() string {
	parts := make([]string, 0, len(s.idx))
	for _, n := range s.idx {
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, ",")
}
