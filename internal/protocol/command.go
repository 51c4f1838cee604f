// Package protocol implements the line server's text wire protocol: command
// parsing and response encoding. All functions are pure and safe for
// concurrent use.
package protocol

import (
	"strconv"
	"strings"
)

// CommandKind identifies the parsed client command.
type CommandKind int

const (
	KindMalformed CommandKind = iota
	KindGet
	KindQuit
	KindShutdown
)

func (k CommandKind) String() string {
	switch k {
	case KindGet:
		return "GET"
	case KindQuit:
		return "QUIT"
	case KindShutdown:
		return "SHUTDOWN"
	default:
		return "MALFORMED"
	}
}

// Command is one decoded client request. Line is meaningful only for KindGet.
type Command struct {
	Kind CommandKind
	Line int64
}

// Parse decodes one request line. A terminating '\n' and a single optional
// '\r' before it are stripped; everything else is matched exactly.
//
// Grammar:
//
//	GET <n>     n is a signed decimal integer with no extra characters
//	QUIT        exact, case-sensitive
//	SHUTDOWN    exact, case-sensitive
//
// Anything else, including an empty line or an unparseable integer, decodes
// as KindMalformed. Range checking of n against the index is the caller's
// concern, not the codec's.
func Parse(raw string) Command {
	line := strings.TrimSuffix(raw, "\n")
	line = strings.TrimSuffix(line, "\r")

	switch {
	case line == "QUIT":
		return Command{Kind: KindQuit}
	case line == "SHUTDOWN":
		return Command{Kind: KindShutdown}
	}

	verb, rest, found := strings.Cut(line, " ")
	if !found || verb != "GET" {
		return Command{Kind: KindMalformed}
	}

	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return Command{Kind: KindMalformed}
	}

	return Command{Kind: KindGet, Line: n}
}
