package keybox

import "fmt"

// AuthError means the supplied passphrase did not decrypt the file.
type AuthError struct {
	Path string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("keybox: %s: wrong passphrase", e.Path)
}
