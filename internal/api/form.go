package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// Form is a multipart/form-data body held in memory. It is encoded afresh
// for every attempt so a replayed request carries the full body.
type Form struct {
	parts []formPart
}

type formPart struct {
	name        string
	filename    string
	contentType string
	data        []byte
}

func NewForm() *Form {
	return &Form{}
}

// AddField appends a plain text field.
func (f *Form) AddField(name, value string) *Form {
	f.parts = append(f.parts, formPart{name: name, data: []byte(value)})
	return f
}

// AddJSON appends v as an application/json part named like a browser Blob.
func (f *Form) AddJSON(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("form field %s: %w", name, err)
	}
	f.parts = append(f.parts, formPart{name: name, filename: "blob", contentType: "application/json", data: b})
	return nil
}

// AddFile appends a file part. The content type is sniffed from data.
func (f *Form) AddFile(name, filename string, data []byte) *Form {
	f.parts = append(f.parts, formPart{
		name:        name,
		filename:    filename,
		contentType: http.DetectContentType(data),
		data:        data,
	})
	return f
}

// AddFileFromPath reads path and appends it as a file part.
func (f *Form) AddFileFromPath(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("form file %s: %w", name, err)
	}
	f.AddFile(name, filepath.Base(path), data)
	return nil
}

// Len returns the number of parts.
func (f *Form) Len() int { return len(f.parts) }

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (f *Form) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range f.parts {
		if p.filename == "" {
			if err := w.WriteField(p.name, string(p.data)); err != nil {
				return nil, "", err
			}
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(p.name), quoteEscaper.Replace(p.filename)))
		h.Set("Content-Type", p.contentType)
		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := pw.Write(p.data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
