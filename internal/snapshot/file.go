package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// LoadDump reads a storage dump from a JSON file. Files ending in ".gz" are
// transparently decompressed; captured dumps are large enough that they are
// usually stored gzipped.
func LoadDump(path string) (Dump, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzipped dump %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	return ReadDump(r)
}

// ReadDump decodes a storage dump from a reader.
func ReadDump(r io.Reader) (Dump, error) {
	var dump Dump
	dec := json.NewDecoder(r)
	if err := dec.Decode(&dump); err != nil {
		return nil, fmt.Errorf("failed to decode storage dump: %w", err)
	}
	return dump, nil
}
