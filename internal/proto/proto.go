// Package proto implements the line-based wire protocol for the chat
// server: input framing, slash-command parsing, and bounded formatting
// of every outgoing line shape. Every function is a pure transformer
// over caller-owned buffers; the package performs no I/O, keeps no
// state between calls, and is safe for unsynchronized concurrent use.
package proto

// Kind tags the semantic origin of a wire line.
type Kind int

const (
	// KindUnclassified is the named zero value. A Message that escapes
	// this package never carries it; it exists so an uninitialized
	// Message cannot be mistaken for a chat line.
	KindUnclassified Kind = iota
	// KindChat is a regular chat line from a user.
	KindChat
	// KindCommand is a slash-command line, parsed into Cmd.
	KindCommand
	// KindSystem is server-generated informational text (join/leave,
	// errors). Only ever produced by the formatters, never by parsing.
	KindSystem
	// KindPrivate is a server-delivered private message (/whisper).
	// Only ever produced by the formatters, never by parsing.
	KindPrivate
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindUnclassified:
		return "unclassified"
	case KindChat:
		return "chat"
	case KindCommand:
		return "command"
	case KindSystem:
		return "system"
	case KindPrivate:
		return "private"
	default:
		return "unknown"
	}
}

// CommandType identifies a recognized slash command.
type CommandType int

const (
	// CommandInvalid means the leading marker was present but the
	// keyword is not in the vocabulary. It is not itself an error;
	// the caller decides how to surface it.
	CommandInvalid CommandType = iota
	// CommandNick is /nick <name>.
	CommandNick
	// CommandQuit is /quit.
	CommandQuit
	// CommandMe is /me <action>.
	CommandMe
	// CommandWhisper is /whisper <target> <text> (alias /w).
	CommandWhisper
)

// String returns the canonical keyword for logging.
func (c CommandType) String() string {
	switch c {
	case CommandInvalid:
		return "invalid"
	case CommandNick:
		return "nick"
	case CommandQuit:
		return "quit"
	case CommandMe:
		return "me"
	case CommandWhisper:
		return "whisper"
	default:
		return "unknown"
	}
}

// Command is the parsed payload of a slash-command line.
// Field meaning depends on Type:
//
//	CommandNick:    Arg = requested name, Rest unused
//	CommandQuit:    both unused
//	CommandMe:      Rest = action text, Arg unused
//	CommandWhisper: Arg = target name, Rest = message body
//
// Arg is capped at NameLen-1 bytes and Rest at MaxMessageLen-1 bytes
// by extraction; truncation to those caps is silent.
type Command struct {
	Type CommandType
	Arg  string
	Rest string
}

// Message is one classified inbound line.
// Text holds the normalized original line (command case) or the chat
// text (chat case), always without a trailing terminator and strictly
// shorter than the wire-line capacity. Cmd is meaningful only when
// Kind == KindCommand.
type Message struct {
	Kind Kind
	Text string
	Cmd  Command
}

// Separators and prefixes used by the formatters. Exported so clients
// rendering their own UI can recognize them.
const (
	SysPrefix = "* "
	ChatSep   = ": "
	PrivOpen  = "["
	PrivArrow = "->"
	PrivClose = "] "
)

// Fixed server-to-client error notices, each already newline-terminated.
// Sent verbatim; never templated with arguments.
const (
	NoticeUnknownCommand = "* error: unknown command\n"
	NoticeBadNick        = "* error: invalid nickname\n"
	NoticeNickInUse      = "* error: nickname already in use\n"
	NoticeWhisperUsage   = "* error: usage: /whisper <name> <message>\n"
)
