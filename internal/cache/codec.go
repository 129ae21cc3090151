package cache

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
)

// JSONCodec 使用 encoding/json 编解码，适合需要人工查看磁盘内容的场景。
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Marshal(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (JSONCodec[T]) Unmarshal(data []byte) (T, error) {
	var value T
	err := json.Unmarshal(data, &value)
	return value, err
}

// GobCodec 使用 encoding/gob 编解码，保留 Go 类型信息。
type GobCodec[T any] struct{}

func (GobCodec[T]) Marshal(value T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec[T]) Unmarshal(data []byte) (T, error) {
	var value T
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&value)
	return value, err
}

// CodecFuncs 把一对函数适配为 Codec，便于调用方直接注入自定义序列化。
type CodecFuncs[T any] struct {
	MarshalFunc   func(T) ([]byte, error)
	UnmarshalFunc func([]byte) (T, error)
}

var errCodecFuncMissing = errors.New("codec function not set")

func (c CodecFuncs[T]) Marshal(value T) ([]byte, error) {
	if c.MarshalFunc == nil {
		return nil, errCodecFuncMissing
	}
	return c.MarshalFunc(value)
}

func (c CodecFuncs[T]) Unmarshal(data []byte) (T, error) {
	if c.UnmarshalFunc == nil {
		var zero T
		return zero, errCodecFuncMissing
	}
	return c.UnmarshalFunc(data)
}
