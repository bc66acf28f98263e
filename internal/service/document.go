package service

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/lu4p/cat"

	"ragchat/internal/domain"
)

// ReadDocument loads the file at path. PDF and office formats are reduced to
// plain text; anything else is read as UTF-8.
func ReadDocument(path string) (domain.Document, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = readPDF(path)
	case ".docx", ".odt", ".rtf":
		if _, err = os.Stat(path); err == nil {
			text, err = cat.File(path)
		}
	default:
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: read %s: %w", domain.ErrIO, path, err)
	}
	return domain.Document{ID: hashString(path), Path: path, Content: text}, nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
