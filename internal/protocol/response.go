package protocol

// Response framing. A success reply is "OK\r\n" followed by the raw line
// bytes and a closing "\r\n"; every failure, protocol or data, is the bare
// "ERR\r\n" with no payload.

const (
	statusOK  = "OK\r\n"
	statusErr = "ERR\r\n"
	crlf      = "\r\n"
)

// EncodeOK frames a successful GET response around the line bytes.
// The returned slice is freshly allocated so the caller may write it
// without holding any reference to line.
func EncodeOK(line []byte) []byte {
	buf := make([]byte, 0, len(statusOK)+len(line)+len(crlf))
	buf = append(buf, statusOK...)
	buf = append(buf, line...)
	buf = append(buf, crlf...)
	return buf
}

// EncodeErr frames the failure response.
func EncodeErr() []byte {
	return []byte(statusErr)
}
