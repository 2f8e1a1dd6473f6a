package pdf

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"
)

// Info summarizes a local PDF.
type Info struct {
	Pages int
	Title string
	Hash  string
}

// Inspect opens the PDF at path and reads its page count and title.
// The parser panics on some malformed inputs; those become errors.
func Inspect(path string) (info *Info, err error) {
	defer func() {
		if r := recover(); r != nil {
			info, err = nil, fmt.Errorf("malformed pdf %s: %v", path, r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	info = &Info{
		Pages: reader.NumPage(),
		Hash:  hex.EncodeToString(hasher.Sum(nil)),
	}

	trailer := reader.Trailer()
	if !trailer.IsNull() {
		if meta := trailer.Key("Info"); !meta.IsNull() {
			if title := meta.Key("Title"); !title.IsNull() {
				info.Title = title.Text()
			}
		}
	}

	return info, nil
}
