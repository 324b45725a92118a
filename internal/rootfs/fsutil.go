package rootfs

import (
	"os"
)

func isNotExist(err error) bool {
	return os.IsNotExist(err)
}

// createFile creates (or truncates) path, making its parent directory first.
func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(parentDir(path), 0755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func parentDir(path string) string {
	i := len(path) - 1
	for i >= 0 && path[i] != '/' {
		i--
	}
	if i <= 0 {
		return "/"
	}
	return path[:i]
}

// wipeAndRecreate removes dir entirely (if present) and recreates it empty.
func wipeAndRecreate(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
