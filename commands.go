package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/diskcache/internal/cache"
	"github.com/any-hub/diskcache/internal/config"
	"github.com/any-hub/diskcache/internal/logging"
	"github.com/any-hub/diskcache/internal/server"
)

// commandEnv 是各子命令共享的运行时依赖。
type commandEnv struct {
	cfg        *config.Config
	configPath string
	logger     *logrus.Logger
	store      *cache.DiskCache[json.RawMessage]
}

type command struct {
	usage string
	arity int
	run   func(env commandEnv, args []string) int
}

var commands = map[string]command{
	"serve": {usage: "serve", arity: 0, run: runServe},
	"get":   {usage: "get <key>", arity: 1, run: runGet},
	"set":   {usage: "set <key> <value>", arity: 2, run: runSet},
	"rm":    {usage: "rm <key>", arity: 1, run: runRemove},
	"clear": {usage: "clear", arity: 0, run: runClear},
}

func runGet(env commandEnv, args []string) int {
	ctx, cancel := env.waitContext()
	defer cancel()

	value, ok, err := env.store.Load(ctx, args[0])
	if err != nil {
		fmt.Fprintf(stdErr, "读取超时: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintf(stdErr, "条目不存在: %s\n", args[0])
		return 1
	}
	fmt.Fprintln(stdOut, string(value))
	return 0
}

func runSet(env commandEnv, args []string) int {
	value := toJSON(args[1])
	return env.await("set", args[0], env.store.Set(args[0], value))
}

func runRemove(env commandEnv, args []string) int {
	return env.await("remove", args[0], env.store.Remove(args[0]))
}

func runClear(env commandEnv, _ []string) int {
	return env.await("remove_all", "", env.store.RemoveAll())
}

// runServe 启动 HTTP 服务，收到 SIGINT/SIGTERM 后在 ShutdownTimeout 内优雅退出。
func runServe(env commandEnv, _ []string) int {
	app, err := server.NewApp(server.AppOptions{
		Logger:    env.logger,
		Store:     env.store,
		Directory: env.store.Directory(),
	})
	if err != nil {
		fmt.Fprintf(stdErr, "构建 HTTP 服务失败: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), env.cfg.Global.ShutdownTimeout.DurationValue())
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			env.logger.WithFields(logging.BaseFields("shutdown", env.configPath)).Warn(err.Error())
		}
	}()

	port := env.cfg.Global.ListenPort
	fields := logging.BaseFields("listen", env.configPath)
	fields["port"] = port
	fields["directory"] = env.store.Directory()
	env.logger.WithFields(fields).Info("Fiber 服务启动")

	if err := app.Listen(fmt.Sprintf(":%d", port)); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// await 等待屏障操作完成；完成不代表写入成功，失败仅体现在日志中。
func (env commandEnv) await(op, key string, done <-chan struct{}) int {
	ctx, cancel := env.waitContext()
	defer cancel()

	if err := cache.Wait(ctx, done); err != nil {
		fmt.Fprintf(stdErr, "等待操作完成超时: %v\n", err)
		return 1
	}
	env.logger.WithFields(logging.EntryFields(op, key)).Debug("操作完成")
	return 0
}

func (env commandEnv) waitContext() (context.Context, context.CancelFunc) {
	timeout := env.cfg.Global.ShutdownTimeout.DurationValue()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

// toJSON 保留合法 JSON 原文，其余输入按 JSON 字符串存储。
func toJSON(raw string) json.RawMessage {
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	quoted, _ := json.Marshal(raw)
	return quoted
}
