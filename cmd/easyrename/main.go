package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/John-Robertt/easyrename/internal/app/run"
	"github.com/John-Robertt/easyrename/internal/config"
	"github.com/John-Robertt/easyrename/internal/confirm"
	"github.com/John-Robertt/easyrename/internal/ctxlog"
	"github.com/John-Robertt/easyrename/internal/domain"
	"github.com/John-Robertt/easyrename/internal/infra/fsx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], streams{
		in:     os.Stdin,
		out:    os.Stdout,
		err:    os.Stderr,
		outTTY: isTTY(os.Stdout),
	})
	stop()
	os.Exit(code)
}

// streams 把进程的标准输入输出注入命令，测试可以直接替换成 buffer。
type streams struct {
	in     io.Reader
	out    io.Writer
	err    io.Writer
	outTTY bool
}

// exitError 携带退出码；err 为 nil 表示信息已经输出过。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

var getwd = os.Getwd

// execute 运行根命令并返回进程退出码：
// 0 全部成功/跳过/预演或用户主动取消；1 存在失败条目或配置错误；2 用法错误。
func execute(ctx context.Context, args []string, s streams) int {
	cmd := newRootCmd(s)
	if args == nil {
		// nil 会让 cobra 回退到 os.Args[1:]。
		args = []string{}
	}
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(s.err, ee.err)
		}
		return ee.code
	}

	// 其余错误都来自 cobra 的参数解析（未知 flag、参数过多等）。
	fmt.Fprintf(s.err, "参数错误：%v\n\n", err)
	fmt.Fprint(s.err, cmd.UsageString())
	return 2
}

type options struct {
	delimiter string
	fields    string
	extension string
	filter    string
	verbose   bool
	yes       bool
	dryRun    bool
	logLevel  string
	logFormat string
	report    string
}

func newRootCmd(s streams) *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:   "easyrename [flags] [DIRECTORY]",
		Short: "按分隔符切分文件名并重新选取字段，批量重命名",
		Long: `easyrename 把目录下每个文件的主名（去掉扩展名）按分隔符切成字段，
再按 --fields 选取并重排字段，用同一个分隔符连接后加回原扩展名。

字段语法：逗号分隔的序号，"a-b" 表示闭区间，例如 "3,1-2"。

未给出 DIRECTORY 时，读取当前目录下的 easyrename.yaml，并使用其中的 path。

示例：
  easyrename -d _ -f 3,1 ./docs           # 2024_report_final.pdf -> final_2024.pdf
  easyrename -d " " -f 1-2 -e .mp3 -n .   # 只预演，不改名`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args, s)
		},
	}
	cmd.SetIn(s.in)
	cmd.SetOut(s.out)
	cmd.SetErr(s.err)

	f := cmd.Flags()
	f.StringVarP(&o.delimiter, "delimiter", "d", config.DefaultDelimiter, "字段分隔符")
	f.StringVarP(&o.fields, "fields", "f", config.DefaultFields, `要保留的字段及顺序，例如 "1,3-5"`)
	f.StringVarP(&o.extension, "extension", "e", config.DefaultExtension, `只处理以此结尾的扩展名（"*" 表示全部）`)
	f.StringVarP(&o.filter, "filter", "l", config.DefaultFilter, `只处理文件名匹配该正则的文件（"*" 表示全部）`)
	f.BoolVarP(&o.verbose, "verbose", "v", false, "逐条输出处理结果")
	f.BoolVarP(&o.yes, "yes", "y", false, "不逐个确认，直接重命名")
	f.BoolVarP(&o.dryRun, "dry-run", "n", false, "只预演，不修改任何文件")
	f.StringVar(&o.report, "report", "", "把 JSON 报告写入该文件")
	f.StringVar(&o.logLevel, "log-level", config.DefaultLogLevel, "日志级别：debug|info|warn|error")
	f.StringVar(&o.logFormat, "log-format", config.DefaultLogFormat, "日志格式：text|json")

	return cmd
}

// cliArgs 把 flag 值连同“是否显式指定”一起交给配置层，保证 --yes=false 之类可以覆盖配置文件。
func (o *options) cliArgs(f *pflag.FlagSet, args []string) config.CLIArgs {
	cli := config.CLIArgs{
		Delimiter: o.delimiter, DelimiterSet: f.Changed("delimiter"),
		Fields: o.fields, FieldsSet: f.Changed("fields"),
		Extension: o.extension, ExtensionSet: f.Changed("extension"),
		Filter: o.filter, FilterSet: f.Changed("filter"),
		Verbose: o.verbose, VerboseSet: f.Changed("verbose"),
		Yes: o.yes, YesSet: f.Changed("yes"),
		DryRun: o.dryRun, DryRunSet: f.Changed("dry-run"),
		LogLevel: o.logLevel, LogLevelSet: f.Changed("log-level"),
		LogFormat: o.logFormat, LogFormatSet: f.Changed("log-format"),
		Report: o.report, ReportSet: f.Changed("report"),
	}
	if len(args) == 1 {
		cli.Path = args[0]
	}
	return cli
}

func (o *options) run(cmd *cobra.Command, args []string, s streams) error {
	cli := o.cliArgs(cmd.Flags(), args)

	cwd, err := getwd()
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("读取当前目录失败：%w", err)}
	}
	cwdAbs, _ := filepath.Abs(cwd)

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		emitReport(s, reportForConfigError(cwdAbs, cli, err))
		return &exitError{code: 1}
	}

	logger := ctxlog.New(eff.LogLevel, eff.LogFormat, s.err)
	ctx := ctxlog.WithLogger(cmd.Context(), logger)

	var obs run.Observer
	if eff.Verbose {
		obs = newProgressUI(s.err)
	}

	var c run.Confirmer
	if !eff.AssumeYes && !eff.DryRun {
		// 提示走 stderr：stdout 可能被约定为只输出 JSON。
		c = confirm.New(s.in, s.err)
	}

	rr := run.Execute(ctx, eff, c, obs)

	if eff.ReportPath != "" {
		if err := writeReportFile(eff.ReportPath, rr); err != nil {
			logger.Error("写入报告文件失败", "path", eff.ReportPath, "err", err)
			emitReport(s, rr)
			return &exitError{code: 1}
		}
		logger.Debug("已写入报告文件", "path", eff.ReportPath)
	}

	emitReport(s, rr)
	if !rr.OK() {
		return &exitError{code: 1}
	}
	return nil
}

func summaryLine(rr domain.RunReport) string {
	return fmt.Sprintf("完成：renamed=%d planned=%d skipped=%d failed=%d aborted=%d",
		rr.Summary.Renamed, rr.Summary.Planned, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.Aborted,
	)
}

func emitReport(s streams, rr domain.RunReport) {
	if s.outTTY {
		// 预演时把计划中的改名逐条列出，便于确认后再去掉 --dry-run。
		for _, it := range rr.Items {
			if it.Status == domain.StatusPlanned {
				fmt.Fprintf(s.out, "%s -> %s\n", it.Src, it.Dst)
			}
		}
		fmt.Fprintln(s.out, summaryLine(rr))
		for _, it := range rr.Items {
			if it.Status != domain.StatusFailed {
				continue
			}
			key := it.Src
			if key == "" {
				key = "<config>"
			}
			fmt.Fprintf(s.err, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(s.out)
	_ = enc.Encode(rr)
	fmt.Fprintln(s.err, summaryLine(rr))
}

func reportForConfigError(cwdAbs string, cli config.CLIArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	dir := cwdAbs
	if cli.Path != "" {
		if filepath.IsAbs(cli.Path) {
			dir = filepath.Clean(cli.Path)
		} else {
			dir = filepath.Join(cwdAbs, cli.Path)
		}
	}
	rr := domain.RunReport{
		Dir:        dir,
		DryRun:     cli.DryRunSet && cli.DryRun,
		Delimiter:  cli.Delimiter,
		Fields:     cli.Fields,
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: config.Code(err),
			ErrorMsg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func writeReportFile(path string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(filepath.Dir(path), filepath.Base(path), b)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
