package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vidshare/backend/internal/apperrors"
	"github.com/vidshare/backend/internal/storage"
)

const (
	maxFieldBytes = 64 << 10
	maxJSONBytes  = 1 << 20
)

// UploadPolicy controls where multipart files are spooled and how large a
// request body may be.
type UploadPolicy struct {
	Dir      string
	MaxBytes int64
}

// multipartForm holds the text fields and the temp file path of every
// accepted file field of a request.
type multipartForm struct {
	values map[string]string
	files  map[string]string
}

func (f multipartForm) value(name string) string { return f.values[name] }
func (f multipartForm) file(name string) string  { return f.files[name] }

func (f multipartForm) paths() []string {
	paths := make([]string, 0, len(f.files))
	for _, path := range f.files {
		paths = append(paths, path)
	}
	return paths
}

// parse streams a multipart body, writing the parts named in fileFields to
// temp files. Other file parts are discarded. On error every temp file
// written so far is removed.
func (p UploadPolicy) parse(w http.ResponseWriter, r *http.Request, fileFields ...string) (multipartForm, error) {
	form := multipartForm{values: make(map[string]string), files: make(map[string]string)}

	if p.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, p.MaxBytes)
	}
	reader, err := r.MultipartReader()
	if err != nil {
		return form, apperrors.BadRequest("expected a multipart form")
	}

	accepted := make(map[string]bool, len(fileFields))
	for _, field := range fileFields {
		accepted[field] = true
	}

	fail := func(cause error) (multipartForm, error) {
		storage.RemoveTempFiles(r.Context(), form.paths()...)
		return multipartForm{values: map[string]string{}, files: map[string]string{}}, uploadError(cause)
	}

	for {
		part, nextErr := reader.NextPart()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return fail(nextErr)
		}

		name := part.FormName()
		switch {
		case name == "":
			_ = part.Close()
		case part.FileName() != "":
			if !accepted[name] || form.files[name] != "" {
				_ = part.Close()
				continue
			}
			path, saveErr := p.save(part)
			if saveErr != nil {
				return fail(saveErr)
			}
			form.files[name] = path
		default:
			value, readErr := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			_ = part.Close()
			if readErr != nil {
				return fail(readErr)
			}
			form.values[name] = strings.TrimSpace(string(value))
		}
	}

	return form, nil
}

func (p UploadPolicy) save(part *multipart.Part) (string, error) {
	defer part.Close()

	tmp, err := os.CreateTemp(p.Dir, "upload-*"+safeExtension(part.FileName()))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, part); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("save upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close upload: %w", err)
	}
	return tmp.Name(), nil
}

func safeExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.BadRequest(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	}
	return apperrors.Wrap(apperrors.KindBadRequest, "invalid multipart payload", err)
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperrors.Wrap(apperrors.KindBadRequest, "invalid request body", err)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}
