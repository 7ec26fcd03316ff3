//go:build windows

package preflight

import (
	"os"

	"golang.org/x/sys/windows"
)

func checkAccess(path string, write bool) error {
	if _, err := os.ReadDir(path); err != nil {
		return err
	}
	if !write {
		return nil
	}
	f, err := os.CreateTemp(path, ".proxyoda-access-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func freeBytes(path string) (uint64, error) {
	dir, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	var available, total, free uint64
	if err := windows.GetDiskFreeSpaceEx(dir, &available, &total, &free); err != nil {
		return 0, err
	}
	return available, nil
}
