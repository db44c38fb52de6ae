package run

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/easyrename/internal/app/planner"
	"github.com/John-Robertt/easyrename/internal/config"
	"github.com/John-Robertt/easyrename/internal/confirm"
	"github.com/John-Robertt/easyrename/internal/ctxlog"
	"github.com/John-Robertt/easyrename/internal/domain"
	"github.com/John-Robertt/easyrename/internal/infra/fsx"
	"github.com/John-Robertt/easyrename/internal/scan"
)

// Confirmer 在真正重命名前征求用户同意（confirm.Prompter 是默认实现）。
type Confirmer interface {
	Ask(ctx context.Context, t domain.RenameTarget) (confirm.Decision, error)
}

var errNoConfirmer = errors.New("需要确认但未提供确认方式（可使用 --yes）")

// 通过可替换的函数指针，让测试能模拟 rename 失败。
var renameFunc = fsx.RenameNoClobber

// Execute 执行一次批量重命名，并返回对外稳定的 RunReport。
//
// 流程：scan → plan → exec（按文件名顺序串行）。
// 错误尽量“降级”为条目级失败（单条失败不影响其他）；
// 只有用户回答 no 或 ctx 被取消才会让剩余条目整体变为 aborted。
func Execute(ctx context.Context, eff config.EffectiveConfig, c Confirmer, obs Observer) domain.RunReport {
	log := ctxlog.FromContext(ctx)

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		Dir:       eff.Dir,
		DryRun:    eff.DryRun,
		Delimiter: eff.Delimiter,
		Fields:    eff.Fields.String(),
		StartedAt: time.Now().UTC(),
	}

	scanStarted := time.Now()
	files, err := scan.ListFiles(eff.Dir, scan.Filter{Extension: eff.Extension, Pattern: eff.Filter}, excludes(eff))
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("扫描失败：%v", err)))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}
	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{"files": len(files)}, time.Since(scanStarted))
	}
	log.Debug("扫描完成", "dir", eff.Dir, "files", len(files))

	rr.Items = make([]domain.ItemResult, 0, len(files))
	total := len(files)
	emit := func(res domain.ItemResult, dur time.Duration) {
		rr.Items = append(rr.Items, res)
		if obs != nil {
			obs.OnItemDone(len(rr.Items), total, res, dur)
		}
	}

	planStarted := time.Now()
	planned, failures, err := planner.Plan(files, eff.Fields, eff.Delimiter)
	if err != nil {
		// 配置层已校验分隔符；走到这里说明调用方绕过了 LoadEffective。
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeConfigInvalid, err.Error()))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}
	for _, f := range failures {
		code := domain.ErrCodeFieldLookup
		if !planner.IsFieldLookup(f.Err) {
			code = domain.ErrCodeInvalidTarget
		}
		log.Warn("规划失败，跳过该文件", "file", f.File.Name, "error_code", code, "err", f.Err)
		emit(domain.ItemResult{
			Src:       f.File.Name,
			Status:    domain.StatusFailed,
			ErrorCode: code,
			ErrorMsg:  f.Err.Error(),
		}, 0)
	}
	if obs != nil {
		obs.OnPhaseDone("plan", map[string]any{
			"planned": len(planned),
			"failed":  len(failures),
		}, time.Since(planStarted))
	}

	execStarted := time.Now()
	ex := executor{
		eff:       eff,
		confirmer: c,
		askAll:    !eff.AssumeYes && !eff.DryRun,
		claimed:   make(map[string]string, len(planned)),
		vacated:   make(map[string]bool),
	}

	for i, p := range planned {
		if ex.stopCode != "" {
			for _, rest := range planned[i:] {
				emit(aborted(rest, ex.stopCode, ex.stopReason), 0)
			}
			break
		}
		if err := ctx.Err(); err != nil {
			for _, rest := range planned[i:] {
				emit(aborted(rest, domain.ErrCodeCanceled, "运行被中断"), 0)
			}
			break
		}

		oneStarted := time.Now()
		res := ex.one(ctx, p)
		if res.Status == domain.StatusAborted {
			// 用户拒绝/中断：当前条目与剩余条目统一 aborted。
			emit(res, time.Since(oneStarted))
			for _, rest := range planned[i+1:] {
				emit(aborted(rest, res.ErrorCode, res.ErrorMsg), 0)
			}
			break
		}
		emit(res, time.Since(oneStarted))
	}

	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"total":   len(planned),
			"dry_run": eff.DryRun,
		}, time.Since(execStarted))
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	log.Info("运行结束",
		"renamed", rr.Summary.Renamed,
		"planned", rr.Summary.Planned,
		"skipped", rr.Summary.Skipped,
		"failed", rr.Summary.Failed,
		"aborted", rr.Summary.Aborted,
	)
	return rr
}

type executor struct {
	eff       config.EffectiveConfig
	confirmer Confirmer

	// askAll 为 false 表示不再询问（--yes / dry-run / 用户回答 all）。
	askAll bool

	// stopCode 非空表示剩余条目不再执行（确认方式失效）。
	stopCode   string
	stopReason string

	// claimed 记录本批已占用的新文件名（新文件名 → 原文件名）。
	// 只有跳过、dry-run 规划成功或真正重命名成功才占用。
	claimed map[string]string
	// vacated 是 dry-run 中已计划移走的原文件名，后续条目可以使用。
	vacated map[string]bool
}

func (x *executor) stop(code, reason string) {
	x.stopCode, x.stopReason = code, reason
}

// one 处理单个已规划的文件。
func (x *executor) one(ctx context.Context, p planner.Planned) domain.ItemResult {
	log := ctxlog.FromContext(ctx)
	t := p.Target
	item := domain.ItemResult{Src: t.Original, Dst: t.Proposed}
	src := p.File.AbsPath
	dst := filepath.Join(filepath.Dir(src), t.Proposed)

	if t.Unchanged() {
		x.claimed[t.Proposed] = t.Original
		item.Status = domain.StatusSkipped
		item.ErrorCode = domain.ErrCodeUnchanged
		item.ErrorMsg = "新文件名与原文件名相同"
		return item
	}

	if base := strings.TrimSuffix(t.Proposed, p.File.Ext); base == "" || t.Proposed == "." || t.Proposed == ".." {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeInvalidTarget
		item.ErrorMsg = fmt.Sprintf("选取的字段为空，无法生成有效文件名：%q", t.Proposed)
		log.Warn("新文件名无效，跳过该文件", "file", t.Original, "target", t.Proposed)
		return item
	}

	if prev, ok := x.claimed[t.Proposed]; ok {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeTargetConflict
		item.ErrorMsg = fmt.Sprintf("与 %q 的新文件名相同：%q", prev, t.Proposed)
		log.Warn("新文件名冲突，跳过该文件", "file", t.Original, "target", t.Proposed, "other", prev)
		return item
	}

	if x.eff.DryRun {
		if !x.vacated[t.Proposed] {
			if err := fsx.CheckTarget(src, dst); err != nil {
				item.Status = domain.StatusFailed
				item.ErrorCode, item.ErrorMsg = classifyRenameError(err)
				return item
			}
		}
		x.claimed[t.Proposed] = t.Original
		x.vacated[t.Original] = true
		item.Status = domain.StatusPlanned
		return item
	}

	if x.askAll {
		if x.confirmer == nil {
			item.Status = domain.StatusFailed
			item.ErrorCode = domain.ErrCodeConfirmFailed
			item.ErrorMsg = errNoConfirmer.Error()
			x.stop(domain.ErrCodeConfirmFailed, errNoConfirmer.Error())
			return item
		}
		d, err := x.confirmer.Ask(ctx, t)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return canceled(item)
			}
			item.Status = domain.StatusFailed
			item.ErrorCode = domain.ErrCodeConfirmFailed
			item.ErrorMsg = fmt.Sprintf("读取确认失败：%v", err)
			x.stop(domain.ErrCodeConfirmFailed, item.ErrorMsg)
			return item
		}
		switch d {
		case confirm.No:
			item.Status = domain.StatusAborted
			item.ErrorCode = domain.ErrCodeUserAborted
			item.ErrorMsg = "用户取消"
			return item
		case confirm.All:
			x.askAll = false
		}
	}

	// 等待确认期间可能已被中断；此时当前文件也不能再改。
	if ctx.Err() != nil {
		return canceled(item)
	}

	if err := renameFunc(src, dst); err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode, item.ErrorMsg = classifyRenameError(err)
		log.Warn("重命名失败", "file", t.Original, "target", t.Proposed, "error_code", item.ErrorCode, "err", err)
		return item
	}

	log.Debug("已重命名", "from", t.Original, "to", t.Proposed)
	x.claimed[t.Proposed] = t.Original
	item.Status = domain.StatusRenamed
	return item
}

func canceled(item domain.ItemResult) domain.ItemResult {
	item.Status = domain.StatusAborted
	item.ErrorCode = domain.ErrCodeCanceled
	item.ErrorMsg = "运行被中断"
	return item
}

func classifyRenameError(err error) (code, msg string) {
	switch {
	case fsx.IsTargetExists(err):
		return domain.ErrCodeTargetExists, err.Error()
	case fsx.IsPathTypeConflict(err):
		return domain.ErrCodeTargetConflict, err.Error()
	case fsx.IsCrossDevice(err):
		return domain.ErrCodeCrossDevice, err.Error()
	default:
		return domain.ErrCodeRenameFailed, fmt.Sprintf("重命名失败：%v", err)
	}
}

func aborted(p planner.Planned, code, reason string) domain.ItemResult {
	return domain.ItemResult{
		Src:       p.Target.Original,
		Dst:       p.Target.Proposed,
		Status:    domain.StatusAborted,
		ErrorCode: code,
		ErrorMsg:  reason,
	}
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}

// excludes 返回扫描时必须排除的文件（配置文件与报告文件本身）。
func excludes(eff config.EffectiveConfig) []string {
	out := make([]string, 0, 2)
	if eff.ConfigFile != "" {
		out = append(out, eff.ConfigFile)
	}
	if eff.ReportPath != "" {
		out = append(out, eff.ReportPath)
	}
	return out
}
