package path

import (
	"os"
	"path/filepath"
	"runtime"
)

// RootPath 傳回專案根目錄的絕對路徑
func RootPath() string {
	// 此檔案位於 /project/utils/path/path.go，往上兩層即專案根目錄
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot resolve caller location")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
}

// Resolve 相對路徑以專案根目錄為基準
func Resolve(p string, elem ...string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(append(append([]string{RootPath()}, elem...), p)...)
}

// Exists 路径是否存在
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
