package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/John-Robertt/easyrename/internal/app/run"
	"github.com/John-Robertt/easyrename/internal/config"
	"github.com/John-Robertt/easyrename/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是 --verbose 时的逐条输出。
//
// 约束：
// - 所有过程信息写到 stderr，不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
type progressUI struct {
	w io.Writer

	mu        sync.Mutex
	startedAt time.Time
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.startedAt = now

	mode := "rename"
	if eff.DryRun {
		mode = "dry-run"
	}

	fmt.Fprintf(p.w, "[%s] easyrename (%s)\n", now.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  dir: %s\n", eff.Dir)
	fmt.Fprintf(p.w, "  delimiter: %q\n", eff.Delimiter)
	fmt.Fprintf(p.w, "  fields: %s\n", eff.Fields.String())
	fmt.Fprintf(p.w, "  extension: %s\n", eff.Extension)
	fmt.Fprintf(p.w, "  filter: %s\n", formatFilter(eff))
	fmt.Fprintf(p.w, "  confirm: %s\n", onOff(!eff.AssumeYes && !eff.DryRun))
	if eff.ReportPath != "" {
		fmt.Fprintf(p.w, "  report: %s\n", eff.ReportPath)
	}
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "scan":
		fmt.Fprintf(p.w, "扫描: files=%d (%s)\n", intField(fields, "files"), formatShortDuration(dur))
	case "plan":
		fmt.Fprintf(p.w, "规划: planned=%d failed=%d (%s)\n",
			intField(fields, "planned"), intField(fields, "failed"), formatShortDuration(dur),
		)
	case "exec":
		fmt.Fprintf(p.w, "执行: total=%d (%s)\n", intField(fields, "total"), formatShortDuration(dur))
	default:
		// 兜底：未知阶段也不要静默。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := strings.ToUpper(res.Status)
	switch res.Status {
	case domain.StatusRenamed:
		status = "OK"
	case domain.StatusPlanned:
		status = "PLAN"
	case domain.StatusSkipped:
		status = "SKIP"
	case domain.StatusFailed:
		status = "FAIL"
	case domain.StatusAborted:
		status = "ABORT"
	}

	switch res.Status {
	case domain.StatusFailed, domain.StatusAborted:
		fmt.Fprintf(p.w, "[%d/%d] %s %s %s: %s\n",
			idx, total, status, res.Src, res.ErrorCode, truncate(res.ErrorMsg, 160),
		)
	case domain.StatusSkipped:
		fmt.Fprintf(p.w, "[%d/%d] %s %s (%s)\n", idx, total, status, res.Src, res.ErrorCode)
	default:
		fmt.Fprintf(p.w, "[%d/%d] %s %s -> %s (%s)\n",
			idx, total, status, res.Src, res.Dst, formatShortDuration(dur),
		)
	}
}

func formatFilter(eff config.EffectiveConfig) string {
	if eff.Filter == nil {
		return config.DefaultFilter
	}
	return eff.Filter.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// truncate 按字节上限截断，但只在 rune 边界处切，避免输出半个 UTF-8 字符。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:runeBoundary(s, max)]
	}
	return s[:runeBoundary(s, max-3)] + "..."
}

// runeBoundary 返回不大于 n 的最大 rune 起始偏移。
func runeBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
