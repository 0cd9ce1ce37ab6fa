package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/John-Robertt/filmfiesta/internal/config"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if code := config.Code(err); code != "" {
			fmt.Fprintf(stderr, "%s\n", err)
			return 2
		}
		fmt.Fprintf(stderr, "错误：%v\n", err)
		return 1
	}
	return 0
}

// app 是一次命令执行的共享状态：flag、生效配置与 logger。
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath    string
	addr          string
	apiKey        string
	storageDriver string
	dataDir       string
	verbose       bool

	eff config.EffectiveConfig
	log *zap.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "filmfiesta",
		Short:         "Browse trending, popular and top rated movies and keep local reviews",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "配置文件路径（默认在当前目录查找 filmfiesta.json / filmfiesta.yaml）")
	pf.StringVar(&a.apiKey, "api-key", "", "TMDB API key（默认读取 "+config.EnvAPIKey+"）")
	pf.StringVar(&a.storageDriver, "storage", "", "评论存储：file|sqlite|postgres|memory")
	pf.StringVar(&a.dataDir, "data-dir", "", "本地数据目录（file/sqlite 存储使用）")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "输出 debug 日志")

	root.AddCommand(
		newServeCmd(a),
		newListCmd(a),
		newSearchCmd(a),
		newReviewsCmd(a),
	)
	return root
}

// setup 合并配置并初始化 logger。只有显式给出的 flag 才参与覆盖。
func (a *app) setup(cmd *cobra.Command) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	cli := config.CLIArgs{
		ConfigPath:       a.configPath,
		APIKey:           a.apiKey,
		APIKeySet:        flags.Changed("api-key"),
		StorageDriver:    a.storageDriver,
		StorageDriverSet: flags.Changed("storage"),
		DataDir:          a.dataDir,
		DataDirSet:       flags.Changed("data-dir"),
		Verbose:          a.verbose,
	}
	if f := flags.Lookup("addr"); f != nil {
		cli.Addr = a.addr
		cli.AddrSet = f.Changed
	}

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		return err
	}
	a.eff = eff

	log, err := newLogger(eff.LogLevel)
	if err != nil {
		return fmt.Errorf("初始化日志失败：%w", err)
	}
	a.log = log
	a.log.Debug("配置（生效）",
		zap.String("file", eff.File),
		zap.String("addr", eff.Addr),
		zap.String("storage", eff.StorageDriver),
		zap.String("data_dir", eff.DataDir),
	)
	return nil
}

// newLogger 使用生产配置（JSON 输出到 stderr），stdout 只留给命令结果。
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// emit：stdout 是 TTY 时输出人读的文本，否则输出单个 JSON 值。
func (a *app) emit(v any, text func(w io.Writer)) error {
	if f, ok := a.stdout.(*os.File); ok && isTTY(f) {
		text(a.stdout)
		return nil
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
