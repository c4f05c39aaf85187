package romloader

import (
	"archive/tar"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// tarMagic sits at offset 257 of a ustar header.
var tarMagic = []byte("ustar")

// extractFromGzip decompresses a gzip file. A tarball yields its first ROM
// file; anything else is treated as a single compressed image.
func (l *Loader) extractFromGzip(r io.Reader, path string) ([]byte, string, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open gzip: %w", err)
	}
	defer zr.Close()

	br := bufio.NewReaderSize(zr, 512)
	peek, _ := br.Peek(262)
	if len(peek) == 262 && bytes.Equal(peek[257:262], tarMagic) {
		return l.extractFromTar(br)
	}

	data, err := limitedRead(br)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decompress: %w", err)
	}

	name := zr.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return data, filepath.Base(name), nil
}

func (l *Loader) extractFromTar(r io.Reader) ([]byte, string, error) {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read tar entry: %w", err)
		}
		if header.Typeflag != tar.TypeReg || !l.isROMFile(header.Name) {
			continue
		}
		if header.Size > MaxROMSize {
			return nil, "", fmt.Errorf("%s: %w", header.Name, ErrFileTooLarge)
		}

		data, err := limitedRead(tr)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", header.Name, err)
		}
		return data, filepath.Base(header.Name), nil
	}

	return nil, "", ErrNoROMFile
}
