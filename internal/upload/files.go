package upload

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// File is a file handle offered by a drag-and-drop surface, a file picker or the CLI.
type File interface {
	Name() string
	ContentType() string
	Size() int64
	Open() (io.ReadCloser, error)
}

type multipartFile struct {
	header *multipart.FileHeader
}

// FromMultipart adapts a file of a multipart form.
func FromMultipart(header *multipart.FileHeader) File {
	return &multipartFile{header: header}
}

func (f *multipartFile) Name() string { return f.header.Filename }

func (f *multipartFile) ContentType() string { return f.header.Header.Get("Content-Type") }

func (f *multipartFile) Size() int64 { return f.header.Size }

func (f *multipartFile) Open() (io.ReadCloser, error) { return f.header.Open() }

type localFile struct {
	path        string
	size        int64
	contentType string
}

// FromPath adapts a file on disk. The content type is derived from the extension
// and, failing that, from the first bytes of the file.
func FromPath(path string) (File, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType, err = sniffContentType(path)
		if err != nil {
			return nil, err
		}
	}
	return &localFile{path: path, size: st.Size(), contentType: contentType}, nil
}

func sniffContentType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

func (f *localFile) Name() string { return filepath.Base(f.path) }

func (f *localFile) ContentType() string { return f.contentType }

func (f *localFile) Size() int64 { return f.size }

func (f *localFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }
