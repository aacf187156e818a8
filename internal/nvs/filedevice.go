package nvs

import (
	"fmt"
	"os"
)

// FileFlash backs FlashDevice with a regular file sized to the
// reserved region, standing in for the Pico's memory-mapped flash
// when this firmware runs hosted on Linux.
type FileFlash struct {
	f          *os.File
	size       int
	sectorSize int
}

// OpenFileFlash opens (creating if absent) a file of exactly size
// bytes at path to use as the NVS region.
func OpenFileFlash(path string, size, sectorSize int) (*FileFlash, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("nvs: open flash region: %w", err)
	}

	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("nvs: size flash region: %w", err)
	}

	return &FileFlash{f: f, size: size, sectorSize: sectorSize}, nil
}

func (d *FileFlash) SectorSize() int { return d.sectorSize }
func (d *FileFlash) Len() int        { return d.size }

func (d *FileFlash) ReadAt(off, length int) []byte {
	buf := make([]byte, length)
	_, err := d.f.ReadAt(buf, int64(off))
	if err != nil && err.Error() != "EOF" {
		return buf
	}

	return buf
}

func (d *FileFlash) EraseProgram(data []byte) bool {
	sectors := sectorsFor(len(data), d.sectorSize)
	eraseLen := sectors * d.sectorSize

	if eraseLen > d.size {
		return false
	}

	erased := make([]byte, eraseLen)
	for i := range erased {
		erased[i] = 0xff
	}

	if _, err := d.f.WriteAt(erased, 0); err != nil {
		return false
	}

	if _, err := d.f.WriteAt(data, 0); err != nil {
		return false
	}

	return d.f.Sync() == nil
}

// Close releases the underlying file handle.
func (d *FileFlash) Close() error {
	return d.f.Close()
}
