package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// EntryFields 描述一次针对单个缓存条目的操作。
func EntryFields(op, key string) logrus.Fields {
	return logrus.Fields{
		"action": "cache_" + op,
		"key":    key,
	}
}

// RequestFields 提供 HTTP 请求日志所需的字段。
func RequestFields(method, path, requestID string, status int) logrus.Fields {
	return logrus.Fields{
		"method":     method,
		"path":       path,
		"request_id": requestID,
		"status":     status,
	}
}
