package ocr

import (
	"encoding/base64"
	"os"
)

func mimeTypeFor(fileType string) string {
	switch fileType {
	case "pdf":
		return "application/pdf"
	case "png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}

func readAsBase64(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
