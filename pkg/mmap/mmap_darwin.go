//go:build darwin

package mmap

import (
	"os"
	"syscall"
	"unsafe"
)

// madvSequential is MADV_SEQUENTIAL, which the syscall package omits on darwin
const madvSequential = 2

func mapFile(f *os.File, size int) ([]byte, error) {
	data, err := syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	// advisory only
	_, _, _ = syscall.Syscall(syscall.SYS_MADVISE, uintptr(unsafe.Pointer(&data[0])), uintptr(len(data)), madvSequential)
	return data, nil
}

func unmapFile(b []byte) error {
	return syscall.Munmap(b)
}
