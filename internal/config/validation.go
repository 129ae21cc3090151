package config

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.Directory == "" {
		return newFieldError("Global.Directory", "不能为空")
	}
	switch g.KeyMapping {
	case KeyMappingPlain, KeyMappingHashed:
	default:
		return newFieldError("Global.KeyMapping", "仅支持 plain/hashed")
	}
	switch g.Codec {
	case CodecJSON, CodecGob:
	default:
		return newFieldError("Global.Codec", "仅支持 json/gob")
	}
	if g.MaxConcurrentReads < 0 {
		return newFieldError("Global.MaxConcurrentReads", "不能为负数")
	}
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.ShutdownTimeout.DurationValue() <= 0 {
		return newFieldError("Global.ShutdownTimeout", "必须大于 0")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", "无法识别的日志级别")
	}
	if g.LogMaxSize < 0 {
		return newFieldError("Global.LogMaxSize", "不能为负数")
	}
	if g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxBackups", "不能为负数")
	}
	return nil
}
