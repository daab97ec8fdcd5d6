//go:build !linux && !darwin

package mmap

import (
	"io"
	"os"
)

// mapFile reads the file into memory where mmap is unavailable
func mapFile(f *os.File, size int) ([]byte, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, err
	}
	return data, nil
}

func unmapFile([]byte) error { return nil }
