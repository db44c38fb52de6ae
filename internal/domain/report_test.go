package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := RunReport{
		Dir:        "/abs/path",
		DryRun:     true,
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Items: []ItemResult{
			{Src: "b_x.txt", Status: StatusSkipped},
			{Src: "", Status: StatusFailed}, // 扫描失败等合成项
			{Src: "a_x.txt", Status: StatusRenamed},
			{Src: "c_x.txt", Status: StatusAborted},
			{Src: "d_x.txt", Status: StatusPlanned},
		},
	}

	r.Finalize()

	// src=="" 必须排在最后。
	got := []string{r.Items[0].Src, r.Items[1].Src, r.Items[2].Src, r.Items[3].Src, r.Items[4].Src}
	want := []string{"a_x.txt", "b_x.txt", "c_x.txt", "d_x.txt", ""}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("items 排序不符合契约：%v", got)
		}
	}
	s := r.Summary
	if s.Renamed != 1 || s.Skipped != 1 || s.Failed != 1 || s.Aborted != 1 || s.Planned != 1 {
		t.Fatalf("summary 统计不正确：%+v", s)
	}
	if r.OK() {
		t.Fatalf("存在 failed 条目时 OK() 应为 false")
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	// time.Time 在 UTC 下应输出 'Z' 后缀。
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
}

func TestRunReport_Finalize_NilItemsEncodeAsEmptyArray(t *testing.T) {
	var r RunReport
	r.Finalize()

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte(`"items":[]`)) {
		t.Fatalf("items 应编码为空数组：%s", string(b))
	}
	if !r.OK() {
		t.Fatalf("空报告应视为成功")
	}
}

func TestRenameTarget_Unchanged(t *testing.T) {
	if !(RenameTarget{Original: "a.txt", Proposed: "a.txt"}).Unchanged() {
		t.Fatalf("相同文件名应视为 unchanged")
	}
	if (RenameTarget{Original: "a_b.txt", Proposed: "a.txt"}).Unchanged() {
		t.Fatalf("不同文件名不应视为 unchanged")
	}
}

func TestSplitExt(t *testing.T) {
	tests := []struct {
		name     string
		wantBase string
		wantExt  string
	}{
		{"a_b_c.txt", "a_b_c", ".txt"},
		{"noext", "noext", ""},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{".bashrc", ".bashrc", ""},
		{"..a", "..a", ""},
		{".hidden.txt", ".hidden", ".txt"},
		{"trailing.", "trailing", "."},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, ext := SplitExt(tt.name)
			if base != tt.wantBase || ext != tt.wantExt {
				t.Errorf("SplitExt(%q) = (%q, %q), want (%q, %q)", tt.name, base, ext, tt.wantBase, tt.wantExt)
			}
		})
	}
}
