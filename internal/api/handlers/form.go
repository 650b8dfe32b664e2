package handlers

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"strings"

	"github.com/nikhilbhutani/mediadesk/internal/upload"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before the standard library spills file parts to disk.
const multipartMemory = 32 << 20

// parseForm parses urlencoded or multipart bodies. Oversized bodies surface
// as *http.MaxBytesError; other parse failures are validation errors.
func parseForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var err error
	if mediaType == "multipart/form-data" {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err == nil {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("file too large: limit is %d MB: %w", tooLarge.Limit>>20, err)
	}
	return upload.Invalid("malformed form data")
}

// uploadedFile returns the file in field after checking it is present, named
// and of an allowed type for kind.
func uploadedFile(r *http.Request, field string, kind upload.MediaKind) (multipart.File, *multipart.FileHeader, error) {
	if err := parseForm(r); err != nil {
		return nil, nil, err
	}

	noFile := upload.Invalid(fmt.Sprintf("no %s file selected", kind))
	if r.MultipartForm == nil {
		return nil, nil, noFile
	}
	file, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, nil, noFile
	}
	if hdr.Filename == "" {
		file.Close()
		return nil, nil, noFile
	}
	if !upload.IsAllowed(hdr.Filename, kind) {
		file.Close()
		return nil, nil, upload.Invalid(fmt.Sprintf("unsupported %s format; allowed: %s",
			kind, strings.Join(upload.Extensions(kind), ", ")))
	}
	return file, hdr, nil
}

// formValue returns the trimmed value of key, or fallback when it is empty.
func formValue(r *http.Request, key, fallback string) string {
	if v := strings.TrimSpace(r.FormValue(key)); v != "" {
		return v
	}
	return fallback
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
