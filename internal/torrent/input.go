// Package torrent classifies the positional argument of a run into the thing
// that gets submitted: a magnet link or the bytes of a .torrent file.
package torrent

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pokerjest/rbit/internal/errs"
)

// MagnetPrefix is the scheme prefix that marks a magnet URI.
const MagnetPrefix = "magnet:"

// Input is either a Magnet or a FileUpload. The set of variants is closed.
type Input interface {
	isInput()
	// Describe returns a short human readable label for logs.
	Describe() string
}

// Magnet is a magnet URI submitted as-is.
type Magnet struct {
	URI string
}

// FileUpload is a .torrent file loaded into memory.
type FileUpload struct {
	Path     string
	Filename string
	Content  []byte
}

func (Magnet) isInput()     {}
func (FileUpload) isInput() {}

func (m Magnet) Describe() string {
	return "magnet " + m.URI
}

func (f FileUpload) Describe() string {
	return fmt.Sprintf("file %s (%d bytes)", f.Path, len(f.Content))
}

// IsMagnet reports whether arg uses the magnet URI scheme.
func IsMagnet(arg string) bool {
	return strings.HasPrefix(arg, MagnetPrefix)
}

// Classify turns the positional argument into an Input. Magnet URIs never
// touch the filesystem; anything else is read fully as a torrent file.
func Classify(arg string) (Input, error) {
	if arg == "" {
		return nil, errs.Input(nil, "no magnet link or torrent file given")
	}
	if IsMagnet(arg) {
		return Magnet{URI: arg}, nil
	}
	return loadFile(arg)
}

func loadFile(path string) (Input, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Input(err, "torrent file %s does not exist", path)
		}
		return nil, errs.Input(err, "cannot open torrent file %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errs.Input(err, "cannot stat torrent file %s", path)
	}
	if info.IsDir() {
		return nil, errs.Input(nil, "%s is a directory, not a torrent file", path)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, errs.Input(err, "cannot read torrent file %s", path)
	}

	return FileUpload{
		Path:     path,
		Filename: filepath.Base(path),
		Content:  content,
	}, nil
}
