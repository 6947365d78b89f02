package middleware

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// Multipart is a multipart/form-data body for the "multipart" option.
type Multipart struct {
	// Fields are simple key-value form fields.
	Fields map[string]string
	// Files are file upload fields.
	Files []FileField
}

// FileField is a file part of a multipart body.
type FileField struct {
	// FieldName is the form field name (e.g., "file").
	FieldName string
	// FileName is the file name sent to the server.
	FileName string
	// ContentType defaults to application/octet-stream.
	ContentType string
	// Data is the file content. Used if Reader is nil.
	Data []byte
	// Reader is read in full when the body is built.
	Reader io.Reader
}

// encode builds the body and returns it with its Content-Type.
func (m *Multipart) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range m.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	for _, f := range m.Files {
		var part io.Writer
		var err error
		if f.ContentType != "" {
			header := make(textproto.MIMEHeader)
			header.Set("Content-Disposition",
				`form-data; name="`+escapeQuotes(f.FieldName)+`"; filename="`+escapeQuotes(f.FileName)+`"`)
			header.Set("Content-Type", f.ContentType)
			part, err = w.CreatePart(header)
		} else {
			part, err = w.CreateFormFile(f.FieldName, f.FileName)
		}
		if err != nil {
			return nil, "", err
		}

		switch {
		case f.Reader != nil:
			_, err = io.Copy(part, f.Reader)
		case f.Data != nil:
			_, err = part.Write(f.Data)
		}
		if err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
