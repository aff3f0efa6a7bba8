package fts

import (
	"os"

	"golang.org/x/sys/unix"
)

type sysOps interface {
	Stat(path string, stat *unix.Stat_t) error
	Lstat(path string, stat *unix.Stat_t) error
	ReadDir(path string) ([]os.DirEntry, error)
}

type realSys struct{}

func (realSys) Stat(path string, stat *unix.Stat_t) error {
	return unix.Stat(path, stat)
}

func (realSys) Lstat(path string, stat *unix.Stat_t) error {
	return unix.Lstat(path, stat)
}

// ReadDir reads a directory without the sorting pass of [os.ReadDir],
// keeping the on-disk order for comparator-less traversals. A partial read
// returns the entries read so far alongside the error.
func (realSys) ReadDir(path string) ([]os.DirEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.ReadDir(-1)
}
