package proto

import (
	"errors"
	"strings"
)

// CommandMarker is the reserved leading byte that introduces a command.
const CommandMarker = '/'

// ErrMalformedCommand reports a recognized command keyword missing a
// mandatory argument (/nick or /whisper without its first token).
var ErrMalformedCommand = errors.New("proto: malformed command")

// IsCommand reports whether a normalized line begins with the command
// marker, without performing a full parse.
func IsCommand(line string) bool {
	return len(line) > 0 && line[0] == CommandMarker
}

// splitToken returns the first whitespace-delimited token of s and the
// remainder with its leading whitespace trimmed.
func splitToken(s string) (tok, rest string) {
	s = strings.TrimLeft(s, " \t")
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimLeft(s[idx+1:], " \t")
}

// truncate caps s at max bytes. Truncation is silent by contract;
// callers that must reject oversized input compare against Limits
// before parsing.
func truncate(s string, max int) string {
	if max >= 0 && len(s) > max {
		return s[:max]
	}
	return s
}

// ParseCommand tokenizes a normalized line that begins with the
// command marker. The first token is matched case-insensitively
// against the vocabulary {nick, quit, me, whisper, w}.
//
// Postcondition: Returns the parsed Command, or ErrMalformedCommand
// when a mandatory argument is missing. An unrecognized keyword is not
// an error: the result carries CommandInvalid.
func (l Limits) ParseCommand(line string) (Command, error) {
	if !IsCommand(line) {
		return Command{Type: CommandInvalid}, nil
	}

	keyword, args := splitToken(line[1:])
	switch strings.ToLower(keyword) {
	case "nick":
		name, _ := splitToken(args)
		name = strings.TrimSpace(name)
		if name == "" {
			return Command{Type: CommandNick}, ErrMalformedCommand
		}
		return Command{
			Type: CommandNick,
			Arg:  truncate(name, l.NameLen-1),
		}, nil

	case "quit":
		// Trailing text after /quit is ignored.
		return Command{Type: CommandQuit}, nil

	case "me":
		return Command{
			Type: CommandMe,
			Rest: truncate(args, l.MaxMessageLen-1),
		}, nil

	case "whisper", "w":
		target, body := splitToken(args)
		if target == "" {
			return Command{Type: CommandWhisper}, ErrMalformedCommand
		}
		return Command{
			Type: CommandWhisper,
			Arg:  truncate(target, l.NameLen-1),
			Rest: truncate(strings.TrimSpace(body), l.MaxMessageLen-1),
		}, nil

	default:
		return Command{Type: CommandInvalid}, nil
	}
}

// ParseLine is the entry point for all inbound lines: it normalizes
// raw, classifies it as command or chat, and returns a single Message.
//
// Postcondition: Returns a Message whose Text is strictly shorter than
// the wire-line capacity and free of terminator bytes, or
// ErrMalformedCommand when a recognized command is missing a mandatory
// argument. On that error the returned Message still carries the
// command type, so the caller can pick the matching usage notice.
// Never produces KindSystem or KindPrivate.
func (l Limits) ParseLine(raw []byte) (Message, error) {
	line := string(Chomp(raw))
	if strings.ContainsAny(line, "\r\n") {
		line = strings.Map(func(r rune) rune {
			if r == '\r' || r == '\n' {
				return -1
			}
			return r
		}, line)
	}
	line = truncate(line, l.WireLineMax()-1)

	if !IsCommand(line) {
		return Message{Kind: KindChat, Text: line}, nil
	}

	cmd, err := l.ParseCommand(line)
	return Message{Kind: KindCommand, Text: line, Cmd: cmd}, err
}
