package domain

// RenameTarget 是一次重命名的 (旧名, 新名) 对；两者都只是文件名，不含目录。
type RenameTarget struct {
	Original string
	Proposed string
}

// Unchanged 表示新旧文件名相同，执行阶段应直接跳过。
func (t RenameTarget) Unchanged() bool { return t.Original == t.Proposed }
