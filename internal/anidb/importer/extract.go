package importer

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// ExtractGzip decompresses a gzip archive at srcPath into dstPath
func ExtractGzip(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer src.Close()

	decoder, err := gzip.NewReader(src)
	if err != nil {
		return fmt.Errorf("failed to read gzip header: %w", err)
	}
	defer decoder.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if _, err := io.Copy(dst, decoder); err != nil {
		dst.Close()
		return fmt.Errorf("failed to extract archive: %w", err)
	}

	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to flush output file: %w", err)
	}

	return nil
}
