// Package uploads handles the binary side of the onboarding form: incoming
// file validation and the local mirror of attachments read back from the
// CRM.
package uploads

import (
	"fmt"
	"path/filepath"
	"strings"
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

var allowedMIMETypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"image/png":  true,
	"image/jpeg": true,
}

// Validator checks uploaded form files against the extension and MIME
// allow-lists and the configured size ceiling.
type Validator struct {
	maxBytes int64
}

// NewValidator creates a validator with the given size ceiling in MiB.
func NewValidator(maxSizeMB int) *Validator {
	return &Validator{maxBytes: int64(maxSizeMB) * 1024 * 1024}
}

// Check returns a non-nil error describing the first rule the file violates.
// fileName is the client-supplied name; contentType may be empty, in which
// case only the extension is checked.
func (v *Validator) Check(fileName string, size int64, contentType string) error {
	base := filepath.Base(fileName)
	if base == "" || base == "." || base != fileName {
		return fmt.Errorf("invalid file name %q", fileName)
	}
	ext := strings.ToLower(filepath.Ext(base))
	if !allowedExtensions[ext] {
		return fmt.Errorf("file type %q is not allowed", ext)
	}
	if contentType != "" {
		mt := contentType
		if i := strings.Index(mt, ";"); i >= 0 {
			mt = strings.TrimSpace(mt[:i])
		}
		if !allowedMIMETypes[strings.ToLower(mt)] {
			return fmt.Errorf("content type %q is not allowed", contentType)
		}
	}
	if size <= 0 {
		return fmt.Errorf("file %q is empty", fileName)
	}
	if size > v.maxBytes {
		return fmt.Errorf("file %q exceeds the %d MiB limit", fileName, v.maxBytes/(1024*1024))
	}
	return nil
}
