package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/filecache/filecache/internal/cache"
	"github.com/filecache/filecache/internal/config"
	"github.com/filecache/filecache/internal/logging"
	"github.com/filecache/filecache/internal/server"
	"github.com/filecache/filecache/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	clearOnly   bool
	showVersion bool
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
		for k, v := range logging.CacheFields(cfg.Cache) {
			fields[k] = v
		}
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	store, err := newCache(cfg.Cache, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	if opts.clearOnly {
		cleared, err := store.Clear()
		fields := logging.BaseFields("clear", opts.configPath)
		fields["cache_root"] = store.Root()
		fields["cleared"] = cleared
		if err != nil {
			logger.WithFields(fields).WithError(err).Error("清理缓存失败")
			return 1
		}
		logger.WithFields(fields).Info("缓存已清理")
		return 0
	}

	fields := logging.BaseFields("startup", opts.configPath)
	for k, v := range logging.CacheFields(cfg.Cache) {
		fields[k] = v
	}
	fields["listen_port"] = cfg.Global.ListenPort
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, store, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// newCache 将 [Cache] 配置转换为缓存实例，策略名称已由 Validate 保证合法。
func newCache(cfg config.CacheConfig, logger *logrus.Logger) (*cache.Cache, error) {
	hash, ok := cache.HashByName(cfg.Hash)
	if !ok {
		return nil, fmt.Errorf("unknown hash: %s", cfg.Hash)
	}
	expiry, ok := cache.ExpiryByName(cfg.Expiry)
	if !ok {
		return nil, fmt.Errorf("unknown expiry strategy: %s", cfg.Expiry)
	}
	return cache.New(cache.Options{
		Root:       cfg.Root,
		DefaultTTL: cfg.DefaultTTL.DurationValue(),
		DirMode:    cfg.DirMode.Perm(),
		FileMode:   cfg.FileMode.Perm(),
		Hash:       hash,
		Expiry:     expiry,
		Logger:     logger,
	})
}

// parseCLIFlags 解析 CLI 参数，未指定时使用 ./config.toml。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("filecache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		clearOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "config.toml", "配置文件路径")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&clearOnly, "clear", false, "清空缓存根目录后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if checkOnly && clearOnly {
		return cliOptions{}, fmt.Errorf("-check-config 与 -clear 不能同时使用")
	}

	return cliOptions{
		configPath:  configFlag,
		checkOnly:   checkOnly,
		clearOnly:   clearOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(cfg *config.Config, store *cache.Cache, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Store:      store,
		Cache:      cfg.Cache,
		ListenPort: port,
	})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
