package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// writeFileAtomic 先写入同目录临时文件再 rename，读取方不会看到半写入的内容。
func writeFileAtomic(filePath string, data []byte, mode os.FileMode) error {
	tempFile, err := os.CreateTemp(filepath.Dir(filePath), tempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(data)
	if err == nil {
		err = tempFile.Chmod(mode)
	}
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// removeIfExists 删除单个条目文件，文件不存在不视为错误。
func removeIfExists(filePath string) error {
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// probeWritable 通过创建并删除临时文件确认目录可写。
func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, tempFilePrefix+"probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
