package proto

import "errors"

// ErrShortBuffer reports that a formatter's rendered output, including
// its line terminator, would exceed the destination capacity. Nothing
// is written in that case.
var ErrShortBuffer = errors.New("proto: destination buffer too small")

// writeLine renders the given parts followed by one '\n' into dst.
// All-or-nothing: the length check happens before any byte is copied,
// so a caller can never observe a partial line.
func writeLine(dst []byte, parts ...string) (int, error) {
	need := 1
	for _, p := range parts {
		need += len(p)
	}
	if need > len(dst) {
		return 0, ErrShortBuffer
	}
	n := 0
	for _, p := range parts {
		n += copy(dst[n:], p)
	}
	dst[n] = '\n'
	return n + 1, nil
}

// FormatChat renders a regular chat line: "<name>: <message>\n".
//
// Postcondition: Returns the byte count written, or ErrShortBuffer
// with zero bytes written. Identifier well-formedness is the caller's
// concern (see Limits.ValidName).
func FormatChat(dst []byte, name, message string) (int, error) {
	return writeLine(dst, name, ChatSep, message)
}

// FormatEmote renders a /me action line: "* <name> <action>\n".
func FormatEmote(dst []byte, name, action string) (int, error) {
	return writeLine(dst, SysPrefix, name, " ", action)
}

// FormatSystem renders a server notice: "* <text>\n".
func FormatSystem(dst []byte, text string) (int, error) {
	return writeLine(dst, SysPrefix, text)
}

// FormatPrivate renders a whisper as seen by the recipient:
// "[<from>-><to>] <message>\n".
func FormatPrivate(dst []byte, from, to, message string) (int, error) {
	return writeLine(dst, PrivOpen, from, PrivArrow, to, PrivClose, message)
}

// FormatPrivateEcho renders the delivery confirmation shown on the
// sender's own screen: "[to @<to>] <message>\n". The literal "to @"
// label is intentionally asymmetric with the recipient-side shape;
// kept byte-exact pending product confirmation.
func FormatPrivateEcho(dst []byte, to, message string) (int, error) {
	return writeLine(dst, PrivOpen, "to @", to, PrivClose, message)
}
