package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusRenamed = "renamed"
	StatusPlanned = "planned" // dry-run
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
	StatusAborted = "aborted"
)

const (
	ErrCodeUnchanged      = "unchanged"
	ErrCodeFieldLookup    = "field_lookup_failed"
	ErrCodeInvalidTarget  = "invalid_target"
	ErrCodeTargetExists   = "target_exists"
	ErrCodeTargetConflict = "target_conflict"
	ErrCodeCrossDevice    = "cross_device"
	ErrCodeRenameFailed   = "rename_failed"
	ErrCodeIOFailed       = "io_failed"
	ErrCodeUserAborted    = "user_aborted"
	ErrCodeCanceled       = "canceled"
	ErrCodeConfirmFailed  = "confirm_failed"
	ErrCodeConfigInvalid  = "config_invalid" // 其余配置错误码见 config 包
)

// RunReport 是对外稳定输出（--report 文件 / 非 TTY stdout JSON）的结构。
type RunReport struct {
	Dir    string `json:"dir"`
	DryRun bool   `json:"dry_run"`

	Delimiter string `json:"delimiter"`
	Fields    string `json:"fields"` // 规范形式，例如 "1,3,4"

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Renamed int `json:"renamed"`
	Planned int `json:"planned"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Aborted int `json:"aborted"`
}

// ItemResult 对应一个候选文件（Src 为空表示扫描/配置等合成条目）。
type ItemResult struct {
	Src    string `json:"src"`
	Dst    string `json:"dst"`
	Status string `json:"status"`

	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 src 字典序；src=="" 的条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Items == nil {
		r.Items = []ItemResult{}
	}

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Src
		b := r.Items[j].Src
		if a == "" && b == "" {
			return false
		}
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusRenamed:
			s.Renamed++
		case StatusPlanned:
			s.Planned++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		case StatusAborted:
			s.Aborted++
		}
	}
	r.Summary = s
}

// OK 表示本次运行没有失败条目（用户中止不算失败）。
func (r RunReport) OK() bool { return r.Summary.Failed == 0 }

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
