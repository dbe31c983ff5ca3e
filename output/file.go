package output

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/pkg/errors"
)

var reIndexSuffix = regexp.MustCompile(`\.(\d+)$`)

// FileWriter saves a response body to disk (--download).
type FileWriter struct {
	fullPath string
	progress io.Writer
}

// NewFileWriter picks the target file: OutputFile when set, otherwise the
// last segment of the URL path. Unless Overwrite is set an existing file is
// never replaced; ".1", ".2", ... is appended instead.
func NewFileWriter(u *url.URL, options *Options, progress io.Writer) *FileWriter {
	var fullPath string

	if options.OutputFile == "" {
		name := path.Base(u.Path)
		if name == "/" || name == "." || name == "" {
			name = "index"
		}
		fullPath = fmt.Sprintf("./%s", name)
	} else {
		fullPath = options.OutputFile
	}

	if !options.Overwrite {
		fullPath = makeNonOverlappingFilename(fullPath)
	}

	if progress == nil {
		progress = io.Discard
	}
	return &FileWriter{
		fullPath: fullPath,
		progress: progress,
	}
}

func makeNonOverlappingFilename(path string) string {
	_, err := os.Stat(path)
	if err == nil {
		newPath := reIndexSuffix.ReplaceAllStringFunc(path, func(index string) string {
			i, err := strconv.Atoi(strings.TrimPrefix(index, "."))
			if err != nil {
				panic(err)
			}
			i++
			return fmt.Sprintf(".%d", i)
		})
		if path == newPath {
			path = fmt.Sprintf("%s.%d", path, 1)
		} else {
			path = newPath
		}
		path = makeNonOverlappingFilename(path)
	}
	return path
}

// Download copies body into the target file and reports progress as
// human-readable sizes. It returns the number of bytes written.
func (f *FileWriter) Download(resp *http.Response) (int64, error) {
	file, err := os.Create(f.fullPath)
	if err != nil {
		return 0, errors.Wrapf(err, "creating %s", f.fullPath)
	}
	defer file.Close()

	counter := &progressWriter{
		out:   f.progress,
		total: resp.ContentLength,
	}
	n, err := io.Copy(io.MultiWriter(file, counter), resp.Body)
	if err != nil {
		return n, errors.Wrapf(err, "downloading to %s", f.fullPath)
	}
	fmt.Fprintf(f.progress, "\nDone. %s saved to %s\n", bytefmt.ByteSize(uint64(n)), f.Filename())
	return n, nil
}

func (f *FileWriter) Filename() string {
	return filepath.Base(f.fullPath)
}

func (f *FileWriter) Path() string {
	return f.fullPath
}

type progressWriter struct {
	out     io.Writer
	total   int64
	written int64
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.total > 0 {
		fmt.Fprintf(w.out, "\rDownloading %s / %s (%d%%)",
			bytefmt.ByteSize(uint64(w.written)),
			bytefmt.ByteSize(uint64(w.total)),
			w.written*100/w.total)
	} else {
		fmt.Fprintf(w.out, "\rDownloading %s", bytefmt.ByteSize(uint64(w.written)))
	}
	return len(p), nil
}
