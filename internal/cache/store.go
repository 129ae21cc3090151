package cache

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"
)

// Codec 负责值类型 T 与磁盘字节之间的转换，缓存本身从不解析这些字节。
type Codec[T any] interface {
	Marshal(value T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}

// KeyMapper 将逻辑 key 映射为缓存目录下的单个文件名。
type KeyMapper interface {
	FileName(key string) (string, error)
}

// Lookup 表示一次 Get 的结果；Found=false 统一代表缺失、损坏或类型不匹配。
type Lookup[T any] struct {
	Value T
	Found bool
}

// Op 标识触发诊断回调的操作类型。
type Op string

const (
	OpGet       Op = "get"
	OpSet       Op = "set"
	OpRemove    Op = "remove"
	OpRemoveAll Op = "remove_all"
)

// ErrorHandler 接收被吞掉的内部错误，仅用于观测，不影响操作结果。
type ErrorHandler func(op Op, key string, err error)

var (
	// ErrDirectoryUnavailable 表示目标路径既不是已有目录也无法创建为可写目录。
	ErrDirectoryUnavailable = errors.New("cache directory unavailable")
	// ErrInvalidKey 表示 key 无法安全地映射为目录内的文件名。
	ErrInvalidKey = errors.New("invalid cache key")
	// ErrClosed 表示缓存已关闭，不再接受新的操作。
	ErrClosed = errors.New("cache is closed")
	// ErrDecode 表示文件存在但无法解码为目标类型。
	ErrDecode = errors.New("cache entry decode failed")
)

// Option 调整 DiskCache 的可选行为。
type Option func(*options)

type options struct {
	keys     KeyMapper
	logger   logrus.FieldLogger
	onError  ErrorHandler
	maxReads int64
	fileMode os.FileMode
}

func defaultOptions() options {
	return options{
		keys:     PlainKeys{},
		logger:   logrus.StandardLogger(),
		fileMode: 0o644,
	}
}

// WithKeyMapper 替换默认的 PlainKeys 映射策略。
func WithKeyMapper(m KeyMapper) Option {
	return func(o *options) {
		if m != nil {
			o.keys = m
		}
	}
}

// WithLogger 指定默认诊断输出使用的 logger。
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithErrorHandler 注入诊断回调；设置后不再写默认日志。
func WithErrorHandler(fn ErrorHandler) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithMaxConcurrentReads 限制同时执行的读取数量，n<=0 表示不限制。
func WithMaxConcurrentReads(n int) Option {
	return func(o *options) {
		o.maxReads = int64(n)
	}
}

// WithFileMode 指定条目文件的权限位。
func WithFileMode(mode os.FileMode) Option {
	return func(o *options) {
		if mode != 0 {
			o.fileMode = mode
		}
	}
}
