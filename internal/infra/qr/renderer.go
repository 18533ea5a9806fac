package qr

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
)

const dataURIPrefix = "data:image/png;base64,"

// Renderer draws PNG QR codes for wallet deep links.
type Renderer struct {
	Size  int
	Level qrcode.RecoveryLevel
}

func NewRenderer() *Renderer {
	return &Renderer{Size: 256, Level: qrcode.Medium}
}

// PNG encodes content as a QR code image.
func (r *Renderer) PNG(content string) ([]byte, error) {
	png, err := qrcode.Encode(content, r.Level, r.Size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode qr code")
	}
	return png, nil
}

// DataURI encodes content as a QR code and returns it as a PNG data URI.
func (r *Renderer) DataURI(content string) (string, error) {
	png, err := r.PNG(content)
	if err != nil {
		return "", err
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// ImageSource returns a payload usable as an <img> source: data URIs pass through,
// bare base64 image bytes get the PNG data URI prefix.
func ImageSource(payload string) string {
	if payload == "" || strings.HasPrefix(payload, "data:") {
		return payload
	}
	return dataURIPrefix + payload
}
