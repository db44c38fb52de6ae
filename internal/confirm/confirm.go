// Package confirm 实现逐个文件的交互式重命名确认。
package confirm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/John-Robertt/easyrename/internal/domain"
)

// Decision 是用户对单个重命名的回答。
type Decision int

const (
	// No 拒绝当前文件，并中止本批剩余的全部文件。
	No Decision = iota
	// Yes 接受当前文件。
	Yes
	// All 接受当前文件，且之后不再询问。
	All
)

func (d Decision) String() string {
	switch d {
	case Yes:
		return "yes"
	case All:
		return "all"
	default:
		return "no"
	}
}

const question = "确认重命名？[(Y)es/(n)o/(a)ll] "

// Prompter 从 In 逐行读取回答，把提示写到 Out。
//
// 约束：
// - 回答去掉首尾空白后大小写不敏感
// - 空行视为 Yes；无法识别的回答会重新提问
// - In 读到 EOF 视为 No（非交互环境下不会误改文件）
// - ctx 取消后立即返回 ctx.Err()，即使读取仍阻塞在 In 上
type Prompter struct {
	In  io.Reader
	Out io.Writer

	br *bufio.Reader
	// pending 是尚未被消费的一次后台读取；同一时刻最多一个。
	pending chan readResult
}

type readResult struct {
	line string
	err  error
}

// New 构造一个 Prompter。
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{In: in, Out: out}
}

// Ask 展示一次重命名并等待回答。
func (p *Prompter) Ask(ctx context.Context, t domain.RenameTarget) (Decision, error) {
	if p.br == nil {
		p.br = bufio.NewReader(p.In)
	}
	if _, err := fmt.Fprintf(p.Out, "旧文件: %s\n新文件: %s\n", t.Original, t.Proposed); err != nil {
		return No, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return No, err
		}
		if _, err := io.WriteString(p.Out, question); err != nil {
			return No, err
		}

		line, err := p.readLine(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return No, ctxErr
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return No, err
		}
		eof := errors.Is(err, io.EOF)
		if eof && line == "" {
			return No, nil
		}

		if d, ok := parseAnswer(line); ok {
			return d, nil
		}
		if eof {
			return No, nil
		}
		if _, err := fmt.Fprintf(p.Out, "无法识别的回答：%q\n", strings.TrimSpace(line)); err != nil {
			return No, err
		}
	}
}

// readLine 在后台读取一行，并与 ctx 竞争。
// ctx 先结束时读取保留在 pending 中，下一次 readLine 直接接着等它。
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	if p.pending == nil {
		ch := make(chan readResult, 1)
		br := p.br
		go func() {
			line, err := br.ReadString('\n')
			ch <- readResult{line: line, err: err}
		}()
		p.pending = ch
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-p.pending:
		p.pending = nil
		return r.line, r.err
	}
}

func parseAnswer(line string) (Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return Yes, true
	case "n", "no":
		return No, true
	case "a", "all":
		return All, true
	default:
		return No, false
	}
}
