package vfs

import (
	"encoding/binary"
	"io"
	"log"
	"os"
	"strings"

	"github.com/mogaika/udf"
)

const SECTOR_SIZE = 0x800

// IsoDriver reads udf filesystems the PSP toolchain ships dumps on.
// Dual layer images keep a second volume behind the first one, both
// get scanned.
type IsoDriver struct {
	f                File
	layers           [2]*udf.Udf
	secondLayerStart int64
}

func (iso *IsoDriver) Init(parent Directory) {}
func (iso *IsoDriver) Name() string          { return iso.f.Name() }
func (iso *IsoDriver) IsDirectory() bool     { return true }

func (iso *IsoDriver) List() ([]string, error) {
	result := make([]string, 0, 48)
	for _, layer := range iso.layers {
		if layer != nil {
			files := layer.ReadDir(nil)
			for i := range files {
				result = append(result, files[i].Name())
			}
		}
	}
	return result, nil
}

func (iso *IsoDriver) GetElement(name string) (Element, error) {
	for _, layer := range iso.layers {
		if layer != nil {
			dir := layer.ReadDir(nil)
			for i := range dir {
				if strings.EqualFold(dir[i].Name(), name) {
					return &IsoDriverFile{
						iso: iso,
						f:   &dir[i]}, nil
				}
			}
		}
	}
	return nil, os.ErrNotExist
}

func (iso *IsoDriver) OpenStreams() error {
	iso.layers[0] = udf.NewUdfFromReader(iso.f)

	var volSizeBuf [4]byte
	// primary volume description sector + offset of volume space size
	if _, err := iso.f.ReadAt(volSizeBuf[:], 0x10*2048+80); err != nil {
		log.Printf("[vfs] [iso] Error when detecting second layer: Read vol size buf error: %v", err)
	} else {
		// minus 16 boot sectors, because they do not replicated over layers (volumes)
		volumeSize := int64(binary.LittleEndian.Uint32(volSizeBuf[:])-16) * SECTOR_SIZE
		if volumeSize+32*SECTOR_SIZE < iso.f.Size() {
			iso.layers[1] = udf.NewUdfFromReader(io.NewSectionReader(iso.f, volumeSize, iso.f.Size()-volumeSize))
			log.Printf("[vfs] [iso] Detected second layer of disk. Start: %x (%x)", volumeSize+16*SECTOR_SIZE, volumeSize)
			iso.secondLayerStart = volumeSize
		}
	}
	return nil
}

func NewIsoDriver(f File) (*IsoDriver, error) {
	iso := &IsoDriver{f: f}
	return iso, iso.OpenStreams()
}

type IsoDriverFile struct {
	iso *IsoDriver
	f   *udf.File
}

func (f *IsoDriverFile) Init(parent Directory)    {}
func (f *IsoDriverFile) Name() string             { return f.f.Name() }
func (f *IsoDriverFile) IsDirectory() bool        { return f.f.IsDir() }
func (f *IsoDriverFile) Size() int64              { return f.f.Size() }
func (f *IsoDriverFile) Open(readonly bool) error { return nil }
func (f *IsoDriverFile) Close() error             { return nil }
func (f *IsoDriverFile) Reader() (*io.SectionReader, error) {
	return f.f.NewReader(), nil
}
func (f *IsoDriverFile) ReadAt(b []byte, off int64) (n int, err error) {
	return f.f.NewReader().ReadAt(b, off)
}
