package proto

// Chomp strips one trailing line feed and, if present immediately
// before it, one trailing carriage return. Input lines arrive with
// either "\n" or "\r\n" termination; both normalize to the bare text.
//
// Idempotent: chomping an already-trimmed line is a no-op. A bare
// trailing '\r' with no '\n' after it is left alone. Never fails;
// empty input yields empty output.
func Chomp(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
		if m := len(line); m > 0 && line[m-1] == '\r' {
			line = line[:m-1]
		}
	}
	return line
}
