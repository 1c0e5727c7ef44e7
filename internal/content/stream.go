package content

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// streamSuffixes are stripped from a compressed file's name to get the name
// of what it contains. Tar variants map to ".tar".
var streamSuffixes = map[formatType][][2]string{
	formatGzip:  {{".tar.gz", ".tar"}, {".tgz", ".tar"}, {".gz", ""}},
	formatXZ:    {{".tar.xz", ".tar"}, {".txz", ".tar"}, {".xz", ""}},
	formatBzip2: {{".tar.bz2", ".tar"}, {".tbz2", ".tar"}, {".bz2", ""}},
}

// innerName returns the name of the file inside a single-stream archive.
func innerName(format formatType, name string) string {
	base := filepath.Base(name)
	lower := strings.ToLower(base)
	for _, s := range streamSuffixes[format] {
		if strings.HasSuffix(lower, s[0]) {
			return base[:len(base)-len(s[0])] + s[1]
		}
	}
	return base
}

// extractFromStream decompresses a gzip, xz or bzip2 file. If the result is
// a tar archive the first content file in it is returned.
func (l *Loader) extractFromStream(format formatType, name string, data []byte) ([]byte, string, error) {
	var (
		r   io.Reader
		err error
	)
	src := bytes.NewReader(data)
	switch format {
	case formatGzip:
		gr, gerr := gzip.NewReader(src)
		if gerr != nil {
			return nil, "", fmt.Errorf("failed to create gzip reader: %w", gerr)
		}
		defer gr.Close()
		r = gr
	case formatXZ:
		r, err = xz.NewReader(src)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create xz reader: %w", err)
		}
	case formatBzip2:
		r = bzip2.NewReader(src)
	}

	out, err := l.limitedRead(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decompress %s: %w", format, err)
	}

	inner := innerName(format, name)
	if strings.HasSuffix(strings.ToLower(inner), ".tar") || detectFormat(out, inner, nil) == formatTar {
		return l.extractFromTar(bytes.NewReader(out))
	}
	return out, inner, nil
}

// extractFromTar extracts the first content file from a tar archive
func (l *Loader) extractFromTar(r io.Reader) ([]byte, string, error) {
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read tar entry: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}
		if !l.accepts(header.Name) {
			continue
		}

		out, err := l.limitedRead(tr)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s from tar: %w", header.Name, err)
		}
		return out, filepath.Base(header.Name), nil
	}

	return nil, "", ErrNoContentFile
}
