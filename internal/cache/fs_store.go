package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// DiskCache 将类型为 T 的值逐个持久化为目录下的文件。
// 读取并发执行；Set/Remove/RemoveAll 作为屏障按提交顺序逐个执行。
type DiskCache[T any] struct {
	directory string
	codec     Codec[T]
	keys      KeyMapper
	fileMode  os.FileMode
	logger    logrus.FieldLogger
	onError   ErrorHandler

	queue *taskQueue
}

// New 以 directory 为根目录构建缓存。目录不存在时会连同父目录一起创建；
// 路径是普通文件、无法创建或不可写时返回包装了 ErrDirectoryUnavailable 的错误。
func New[T any](directory string, codec Codec[T], opts ...Option) (*DiskCache[T], error) {
	if directory == "" {
		return nil, fmt.Errorf("%w: directory required", ErrDirectoryUnavailable)
	}
	if codec == nil {
		return nil, errors.New("codec required")
	}

	abs, err := filepath.Abs(directory)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %w", ErrDirectoryUnavailable, directory, err)
	}
	if err := ensureDirectory(abs); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &DiskCache[T]{
		directory: abs,
		codec:     codec,
		keys:      o.keys,
		fileMode:  o.fileMode,
		logger:    o.logger,
		onError:   o.onError,
		queue:     newTaskQueue(o.maxReads),
	}, nil
}

func ensureDirectory(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%w: %s is not a directory", ErrDirectoryUnavailable, dir)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: stat %s: %w", ErrDirectoryUnavailable, dir, err)
	case err != nil:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create %s: %w", ErrDirectoryUnavailable, dir, err)
		}
	}

	if err := probeWritable(dir); err != nil {
		return fmt.Errorf("%w: %s is not writable: %w", ErrDirectoryUnavailable, dir, err)
	}
	return nil
}

// Directory 返回缓存使用的绝对目录路径。
func (c *DiskCache[T]) Directory() string {
	return c.directory
}

// Get 异步读取 key；返回的 channel 恰好投递一个结果后关闭。
func (c *DiskCache[T]) Get(key string) <-chan Lookup[T] {
	result := make(chan Lookup[T], 1)
	deliver := func(l Lookup[T]) {
		result <- l
		close(result)
	}

	submitted := c.queue.submit(task{run: func() {
		defer c.recoverTask(OpGet, key, func() { deliver(Lookup[T]{}) })
		value, ok := c.read(key)
		deliver(Lookup[T]{Value: value, Found: ok})
	}})
	if !submitted {
		c.report(OpGet, key, ErrClosed)
		deliver(Lookup[T]{})
	}
	return result
}

// Load 阻塞等待一次 Get。ctx 只约束调用方的等待，已提交的读取仍会执行完毕。
func (c *DiskCache[T]) Load(ctx context.Context, key string) (T, bool, error) {
	select {
	case l := <-c.Get(key):
		return l.Value, l.Found, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

// Set 以屏障方式写入 key：先删除旧文件，再编码并原子写入。
// 返回的 channel 在写入尝试结束后关闭，无论成功与否。
func (c *DiskCache[T]) Set(key string, value T) <-chan struct{} {
	return c.barrier(OpSet, key, func() {
		c.write(key, value)
	})
}

// Remove 以屏障方式删除 key 对应的文件，文件不存在时同样正常完成。
func (c *DiskCache[T]) Remove(key string) <-chan struct{} {
	return c.barrier(OpRemove, key, func() {
		filePath, err := c.entryPath(key)
		if err != nil {
			c.report(OpRemove, key, err)
			return
		}
		if err := removeIfExists(filePath); err != nil {
			c.report(OpRemove, key, err)
		}
	})
}

// RemoveAll 以屏障方式删除目录下的全部内容；单项失败不会中断其余删除。
func (c *DiskCache[T]) RemoveAll() <-chan struct{} {
	return c.barrier(OpRemoveAll, "", func() {
		entries, err := os.ReadDir(c.directory)
		if err != nil {
			c.report(OpRemoveAll, "", err)
			return
		}
		for _, entry := range entries {
			if err := os.RemoveAll(filepath.Join(c.directory, entry.Name())); err != nil {
				c.report(OpRemoveAll, entry.Name(), err)
			}
		}
	})
}

// Close 停止接收新操作并等待已提交的操作全部完成。
func (c *DiskCache[T]) Close(ctx context.Context) error {
	return c.queue.close(ctx)
}

// Wait 阻塞直到 done 关闭或 ctx 结束。
func Wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *DiskCache[T]) barrier(op Op, key string, fn func()) <-chan struct{} {
	done := make(chan struct{})
	submitted := c.queue.submit(task{barrier: true, run: func() {
		defer c.recoverTask(op, key, func() { close(done) })
		fn()
		close(done)
	}})
	if !submitted {
		c.report(op, key, ErrClosed)
		close(done)
	}
	return done
}

func (c *DiskCache[T]) read(key string) (T, bool) {
	var zero T
	filePath, err := c.entryPath(key)
	if err != nil {
		c.report(OpGet, key, err)
		return zero, false
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.report(OpGet, key, err)
		}
		return zero, false
	}

	value, err := c.codec.Unmarshal(data)
	if err != nil {
		c.report(OpGet, key, fmt.Errorf("%w: %w", ErrDecode, err))
		return zero, false
	}
	return value, true
}

func (c *DiskCache[T]) write(key string, value T) {
	filePath, err := c.entryPath(key)
	if err != nil {
		c.report(OpSet, key, err)
		return
	}

	if err := removeIfExists(filePath); err != nil {
		c.report(OpSet, key, err)
	}

	data, err := c.codec.Marshal(value)
	if err != nil {
		c.report(OpSet, key, fmt.Errorf("encode: %w", err))
		return
	}
	if err := writeFileAtomic(filePath, data, c.fileMode); err != nil {
		c.report(OpSet, key, err)
	}
}

func (c *DiskCache[T]) entryPath(key string) (string, error) {
	name, err := c.keys.FileName(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.directory, name), nil
}

// recoverTask 保证任务 panic 时仍触发完成信号，且派发 goroutine 不受影响。
func (c *DiskCache[T]) recoverTask(op Op, key string, complete func()) {
	if r := recover(); r != nil {
		c.report(op, key, fmt.Errorf("panic: %v", r))
		complete()
	}
}

func (c *DiskCache[T]) report(op Op, key string, err error) {
	if c.onError != nil {
		c.onError(op, key, err)
		return
	}
	c.logger.WithFields(logrus.Fields{
		"action": "cache_" + string(op),
		"key":    key,
		"dir":    c.directory,
	}).Warn(err.Error())
}
