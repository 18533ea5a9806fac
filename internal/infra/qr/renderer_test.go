package qr

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/png"
	"strings"
	"testing"

	"github.com/makiuchi-d/gozxing"
	gozxingqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, png []byte) string {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(png))
	require.NoError(t, err)
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	require.NoError(t, err)
	result, err := gozxingqr.NewQRCodeReader().Decode(bmp, nil)
	require.NoError(t, err)
	return result.GetText()
}

func TestDataURIRoundTrip(t *testing.T) {
	const link = "openid-vc://?request_uri=https://verifiedid.did.msidentity.com/v1.0/tenants/t/verifiableCredentials/issuanceRequests/abc"
	r := NewRenderer()

	uri, err := r.DataURI(link)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, dataURIPrefix))

	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, dataURIPrefix))
	require.NoError(t, err)
	require.Equal(t, link, decode(t, png))
}

func TestImageSource(t *testing.T) {
	require.Equal(t, "data:image/gif;base64,AAAA", ImageSource("data:image/gif;base64,AAAA"))
	require.Equal(t, "data:image/png;base64,iVBORw0KGgo", ImageSource("iVBORw0KGgo"))
	require.Empty(t, ImageSource(""))
}
