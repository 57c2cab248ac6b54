package resume

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// Load reads the resume at path as plain text or, for .pdf files, as the text of
// its pages joined by newlines. A missing, unreadable or empty resume yields an
// empty string and a warning, never an error.
func Load(path string, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("resume", path))

	path = strings.TrimSpace(path)
	if path == "" {
		logger.Warn("resume path is not configured")
		return ""
	}

	if _, err := os.Stat(path); err != nil {
		logger.Warn("resume file not found", zap.Error(err))
		return ""
	}

	var (
		text string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = readPDF(path)
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	}
	if err != nil {
		logger.Warn("failed to load resume", zap.Error(err))
		return ""
	}

	if strings.TrimSpace(text) == "" {
		logger.Warn("resume appears to be empty")
		return ""
	}

	logger.Info("resume loaded", zap.Int("length", len(text)))
	return text
}

func readPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		if text != "" {
			pages = append(pages, text)
		}
	}

	return strings.Join(pages, "\n"), nil
}
