package cache

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	tempFilePrefix  = ".cache-"
	maxFileNameSize = 255
)

// PlainKeys 直接以 key 作为文件名；会逃逸目录或与临时文件冲突的 key 被拒绝。
type PlainKeys struct{}

func (PlainKeys) FileName(key string) (string, error) {
	switch {
	case key == "":
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	case key == "." || key == "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	case len(key) > maxFileNameSize:
		return "", fmt.Errorf("%w: key longer than %d bytes", ErrInvalidKey, maxFileNameSize)
	case strings.ContainsRune(key, '/'), strings.ContainsRune(key, os.PathSeparator), strings.ContainsRune(key, 0):
		return "", fmt.Errorf("%w: %q contains a path separator", ErrInvalidKey, key)
	case strings.HasPrefix(key, tempFilePrefix):
		return "", fmt.Errorf("%w: %q uses the reserved %s prefix", ErrInvalidKey, key, tempFilePrefix)
	}
	return key, nil
}

// HashedKeys 以 key 的 xxhash64 十六进制摘要作为文件名，任意字符串均可使用。
type HashedKeys struct{}

func (HashedKeys) FileName(key string) (string, error) {
	sum := xxhash.Sum64String(key)
	name := strconv.FormatUint(sum, 16)
	return strings.Repeat("0", 16-len(name)) + name, nil
}
