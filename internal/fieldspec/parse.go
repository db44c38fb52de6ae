package fieldspec

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// scanState 是单遍扫描的状态。光标是显式的 pos，不会在循环中被回拨或跳转。
type scanState int

const (
	stateStart      scanState = iota // 开头：只接受数字
	stateDigits                      // 普通序号的数字段中
	stateAfterComma                  // 刚读过 ','：只接受数字
	stateAfterDash                   // 刚读过 '-'：只接受数字（范围终点）
	stateRangeEnd                    // 范围终点的数字段中
)

type parser struct {
	src string
	out []int

	runStart int // 当前数字段的起点
	rangeLo  int // 当前范围的起点值（仅在 stateAfterDash/stateRangeEnd 有意义）
}

// Parse 把字段规格解析为 Spec。
//
// 拒绝（*InvalidSpecError）：
// - 空串、以分隔符开头、出现 {数字 , -} 以外的字符
// - 分隔符后没有数字（"1,,2" / "1," / "1-" / "1-,3" / "1,-3"）
// - 范围未遇到 ',' 之前又出现 '-'（"1-3-5"）
// - 序号为 0、超过 MaxIndex，或范围终点小于起点（"5-3"）
//
// 任一错误都使整体失败，不返回部分结果。
func Parse(spec string) (Spec, error) {
	if spec == "" {
		return Spec{}, invalid(spec, 0, "字段规格为空")
	}

	p := &parser{src: spec, out: make([]int, 0, len(spec))}
	st := stateStart

	for pos := 0; pos < len(spec); pos++ {
		c := spec[pos]

		switch {
		case isDigit(c):
			switch st {
			case stateStart, stateAfterComma:
				p.runStart = pos
				st = stateDigits
			case stateAfterDash:
				p.runStart = pos
				st = stateRangeEnd
			}

		case c == ',':
			switch st {
			case stateDigits:
				if err := p.emitRun(pos); err != nil {
					return Spec{}, err
				}
			case stateRangeEnd:
				if err := p.emitRange(pos); err != nil {
					return Spec{}, err
				}
			case stateStart:
				return Spec{}, invalid(spec, pos, "不能以分隔符开头")
			case stateAfterDash:
				return Spec{}, invalid(spec, pos, "'-' 后缺少范围终点")
			default:
				return Spec{}, invalid(spec, pos, "',' 前缺少字段序号")
			}
			st = stateAfterComma

		case c == '-':
			switch st {
			case stateDigits:
				lo, err := p.number(pos)
				if err != nil {
					return Spec{}, err
				}
				p.rangeLo = lo
			case stateRangeEnd:
				return Spec{}, invalid(spec, pos, "范围在遇到 ',' 之前不能再出现 '-'")
			case stateStart:
				return Spec{}, invalid(spec, pos, "不能以分隔符开头")
			case stateAfterDash:
				return Spec{}, invalid(spec, pos, "'-' 后缺少范围终点")
			default:
				return Spec{}, invalid(spec, pos, "'-' 前缺少范围起点")
			}
			st = stateAfterDash

		default:
			r, _ := utf8.DecodeRuneInString(spec[pos:])
			return Spec{}, invalid(spec, pos, fmt.Sprintf("非法字符 %q（只允许数字、',' 与 '-'）", r))
		}
	}

	switch st {
	case stateDigits:
		if err := p.emitRun(len(spec)); err != nil {
			return Spec{}, err
		}
	case stateRangeEnd:
		if err := p.emitRange(len(spec)); err != nil {
			return Spec{}, err
		}
	case stateAfterComma:
		return Spec{}, invalid(spec, len(spec), "',' 后缺少字段序号")
	case stateAfterDash:
		return Spec{}, invalid(spec, len(spec), "'-' 后缺少范围终点")
	}

	return Spec{idx: p.out}, nil
}

// MustParse 供测试与常量场景使用；解析失败直接 panic。
func MustParse(spec string) Spec {
	s, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return s
}

// number 把 [runStart, end) 的数字段转成序号并校验范围。
func (p *parser) number(end int) (int, error) {
	digits := p.src[p.runStart:end]
	n, err := strconv.Atoi(digits)
	if err != nil || n > MaxIndex {
		return 0, invalid(p.src, p.runStart, fmt.Sprintf("字段序号 %s 超过上限 %d", digits, MaxIndex))
	}
	if n == 0 {
		return 0, invalid(p.src, p.runStart, "字段序号从 1 开始")
	}
	return n, nil
}

func (p *parser) emitRun(end int) error {
	n, err := p.number(end)
	if err != nil {
		return err
	}
	p.out = append(p.out, n)
	return nil
}

// emitRange 以 [runStart, end) 为终点，展开 rangeLo..hi（两端包含）。
func (p *parser) emitRange(end int) error {
	hi, err := p.number(end)
	if err != nil {
		return err
	}
	if hi < p.rangeLo {
		return invalid(p.src, p.runStart, fmt.Sprintf("范围终点 %d 小于起点 %d", hi, p.rangeLo))
	}
	for n := p.rangeLo; n <= hi; n++ {
		p.out = append(p.out, n)
	}
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func invalid(spec string, pos int, reason string) *InvalidSpecError {
	return &InvalidSpecError{Spec: spec, Pos: pos, Reason: reason}
}
