// Package imageio decodes photographs and normal maps from disk.
//
// image.Decode is not used: the tga package registers itself with an empty
// magic string, which matches every input and shadows the other formats.
// Decoders are picked by file extension instead, falling back to header
// sniffing for unknown extensions.
package imageio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ErrUnsupported is returned when no decoder claims a file.
var ErrUnsupported = errors.New("imageio: unsupported image format")

type decodeFunc func(io.Reader) (image.Image, error)

var byExt = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".tga":  "tga",
	".webp": "webp",
	".bmp":  "bmp",
	".tif":  "tiff",
	".tiff": "tiff",
}

var decoders = map[string]decodeFunc{
	"jpeg": jpeg.Decode,
	"png":  png.Decode,
	"tga":  tga.Decode,
	"webp": webp.Decode,
	"bmp":  bmp.Decode,
	"tiff": tiff.Decode,
}

// FormatFromPath maps a file extension to a format name, or "" if unknown.
func FormatFromPath(path string) string {
	return byExt[strings.ToLower(filepath.Ext(path))]
}

// Sniff identifies a format from the leading bytes of a file. TGA has no
// magic number and is never reported.
func Sniff(head []byte) string {
	switch {
	case bytes.HasPrefix(head, []byte("\x89PNG\r\n\x1a\n")):
		return "png"
	case bytes.HasPrefix(head, []byte{0xff, 0xd8}):
		return "jpeg"
	case len(head) >= 12 && string(head[:4]) == "RIFF" && string(head[8:12]) == "WEBP":
		return "webp"
	case bytes.HasPrefix(head, []byte("BM")):
		return "bmp"
	case bytes.HasPrefix(head, []byte("II*\x00")), bytes.HasPrefix(head, []byte("MM\x00*")):
		return "tiff"
	}
	return ""
}

// Decode reads an image from r. name is used for the extension lookup and
// in error messages.
func Decode(r io.Reader, name string) (image.Image, string, error) {
	format := FormatFromPath(name)
	br := bufio.NewReader(r)
	if format == "" {
		head, _ := br.Peek(12)
		format = Sniff(head)
	}
	dec, ok := decoders[format]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	img, err := dec(br)
	if err != nil {
		return nil, format, fmt.Errorf("imageio: decode %s as %s: %w", name, format, err)
	}
	return img, format, nil
}

// Load opens and decodes the file at path.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imageio: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := Decode(f, path)
	return img, err
}
