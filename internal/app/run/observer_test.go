package run

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/John-Robertt/easyrename/internal/config"
	"github.com/John-Robertt/easyrename/internal/domain"
)

type recordObserver struct {
	startCalls int
	phases     []string
	items      []string
	idx        []int
	total      int
}

func (o *recordObserver) OnStart(eff config.EffectiveConfig) {
	o.startCalls++
}

func (o *recordObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	o.phases = append(o.phases, name)
}

func (o *recordObserver) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	o.items = append(o.items, res.Src)
	o.idx = append(o.idx, idx)
	o.total = total
}

func TestExecute_EmitsPhaseAndItemEvents(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a_b.txt"))
	touch(t, filepath.Join(root, "c_d.txt"))
	touch(t, filepath.Join(root, "single.txt")) // 字段不足

	obs := &recordObserver{}
	_ = Execute(context.Background(), effFor(t, root, "_", "2,1", func(e *config.EffectiveConfig) {
		e.DryRun = true
	}), nil, obs)

	if obs.startCalls != 1 {
		t.Fatalf("期望 OnStart 调用 1 次，实际 %d", obs.startCalls)
	}
	wantPhases := []string{"scan", "plan", "exec"}
	if !reflect.DeepEqual(obs.phases, wantPhases) {
		t.Fatalf("阶段事件不符合预期：got=%v want=%v", obs.phases, wantPhases)
	}
	// 规划失败的条目先于执行条目发出。
	wantItems := []string{"single.txt", "a_b.txt", "c_d.txt"}
	if !reflect.DeepEqual(obs.items, wantItems) {
		t.Fatalf("条目事件不符合预期：got=%v want=%v", obs.items, wantItems)
	}
	if !reflect.DeepEqual(obs.idx, []int{1, 2, 3}) || obs.total != 3 {
		t.Fatalf("idx/total 不符合预期：idx=%v total=%d", obs.idx, obs.total)
	}
}

func TestExecute_NilObserver_SameResult(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a_b.txt"))

	eff := effFor(t, root, "_", "2,1", func(e *config.EffectiveConfig) { e.DryRun = true })

	a := Execute(context.Background(), eff, nil, &recordObserver{})
	b := Execute(context.Background(), eff, nil, nil)

	// 时间字段本身允许有微小差异；对比时归零。
	a.StartedAt, a.FinishedAt = time.Time{}, time.Time{}
	b.StartedAt, b.FinishedAt = time.Time{}, time.Time{}

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("nil observer 不应改变结果：\nwith=%+v\nnil=%+v", a, b)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}

// effFor 通过 LoadEffective 构造配置，保证测试与 CLI 走同一条校验路径。
func effFor(t *testing.T, dir, delim, fields string, mut func(*config.EffectiveConfig)) config.EffectiveConfig {
	t.Helper()
	eff, err := config.LoadEffective(dir, config.CLIArgs{
		Path:      dir,
		Delimiter: delim, DelimiterSet: true,
		Fields: fields, FieldsSet: true,
	})
	if err != nil {
		t.Fatalf("构造配置失败：%v", err)
	}
	if mut != nil {
		mut(&eff)
	}
	return eff
}
