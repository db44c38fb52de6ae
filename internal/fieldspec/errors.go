package fieldspec

import (
	"errors"
	"fmt"
)

// ErrInvalidSpec 可用于 errors.Is 判断，具体位置/原因见 *InvalidSpecError。
var ErrInvalidSpec = errors.New("invalid field spec")

// InvalidSpecError 描述字段规格的语法错误。
// Pos 是出错字符（或出错数字段起点）的 0-based 字节偏移；空串与末尾缺数字时 Pos == len(Spec)。
type InvalidSpecError struct {
	Spec   string
	Pos    int
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("字段规格 %q 无效（位置 %d）：%s", e.Spec, e.Pos, e.Reason)
}

func (e *InvalidSpecError) Is(target error) bool { return target == ErrInvalidSpec }
