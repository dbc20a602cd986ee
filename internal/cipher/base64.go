package cipher

import "encoding/base64"

// EncodeBase64 encodes b as standard, padded Base64 with no line wrapping.
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBase64 reverses EncodeBase64.
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
