package run

import (
	"time"

	"github.com/John-Robertt/easyrename/internal/config"
	"github.com/John-Robertt/easyrename/internal/domain"
)

// Observer 用于把“阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 事件在调用 Execute 的 goroutine 上同步发出。
type Observer interface {
	// OnStart 在 Execute 开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在 scan/plan/exec 阶段结束时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemDone 在某个文件得出最终状态时调用；idx 从 1 开始，total 为扫描到的文件数。
	OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration)
}
