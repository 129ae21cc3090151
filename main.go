package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/diskcache/internal/cache"
	"github.com/any-hub/diskcache/internal/config"
	"github.com/any-hub/diskcache/internal/logging"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	command     string
	args        []string
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["directory"] = cfg.Global.Directory
		fields["key_mapping"] = cfg.Global.KeyMapping
		fields["codec"] = cfg.Global.Codec
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	cmd, ok := commands[opts.command]
	if !ok {
		fmt.Fprintf(stdErr, "未知命令: %s\n", opts.command)
		return 2
	}
	if len(opts.args) != cmd.arity {
		fmt.Fprintf(stdErr, "用法: diskcache %s\n", cmd.usage)
		return 2
	}

	// 目录在此处创建或校验；失败即 DirectoryUnavailable，不再继续。
	store, err := openCache(cfg.Global, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Global.ShutdownTimeout.DurationValue())
		defer cancel()
		if err := store.Close(ctx); err != nil {
			logger.WithFields(logging.BaseFields("close_cache", opts.configPath)).Warn(err.Error())
		}
	}()

	return cmd.run(commandEnv{cfg: cfg, configPath: opts.configPath, logger: logger, store: store}, opts.args)
}

// openCache 按配置选择编解码与 key 映射策略，构建 JSON 文档缓存。
func openCache(cfg config.GlobalConfig, logger *logrus.Logger) (*cache.DiskCache[json.RawMessage], error) {
	var codec cache.Codec[json.RawMessage] = cache.JSONCodec[json.RawMessage]{}
	if cfg.Codec == config.CodecGob {
		codec = cache.GobCodec[json.RawMessage]{}
	}

	opts := []cache.Option{
		cache.WithLogger(logging.ForCache(logger, cfg.Directory)),
		cache.WithMaxConcurrentReads(cfg.MaxConcurrentReads),
	}
	if cfg.KeyMapping == config.KeyMappingHashed {
		opts = append(opts, cache.WithKeyMapper(cache.HashedKeys{}))
	}
	return cache.New[json.RawMessage](cfg.Directory, codec, opts...)
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("diskcache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 DISKCACHE_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("DISKCACHE_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	command := "serve"
	rest := fs.Args()
	if len(rest) > 0 {
		command = rest[0]
		rest = rest[1:]
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		command:     command,
		args:        rest,
	}, nil
}
