package domain

import (
	"fmt"
	"strings"
)

// LogEntry is one record of the append-only submission log.
type LogEntry struct {
	Headline string
	UserNeed string
	Class    AudienceClass
}

var (
	fieldEscaper   = strings.NewReplacer(`\`, `\\`, `|`, `\|`, "\n", `\n`, "\r", `\r`)
	fieldUnescaper = strings.NewReplacer(`\\`, `\`, `\|`, `|`, `\n`, "\n", `\r`, "\r")
)

// Line renders the entry as "<headline> (<user_need>)|<class>" without a trailing newline.
// Backslash, pipe and line breaks inside the fields are escaped so one entry is always one line.
func (e LogEntry) Line() string {
	return fmt.Sprintf("%s (%s)|%s", fieldEscaper.Replace(e.Headline), fieldEscaper.Replace(e.UserNeed), e.Class)
}

// ParseLogLine decodes a line produced by LogEntry.Line.
func ParseLogLine(line string) (LogEntry, error) {
	sep := lastUnescapedPipe(line)
	if sep < 0 {
		return LogEntry{}, fmt.Errorf("log line %q: missing class separator", line)
	}
	left, class := line[:sep], line[sep+1:]

	open := strings.LastIndex(left, " (")
	if open < 0 || !strings.HasSuffix(left, ")") {
		return LogEntry{}, fmt.Errorf("log line %q: missing user need", line)
	}

	return LogEntry{
		Headline: fieldUnescaper.Replace(left[:open]),
		UserNeed: fieldUnescaper.Replace(left[open+2 : len(left)-1]),
		Class:    AudienceClass(class),
	}, nil
}

func lastUnescapedPipe(line string) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i] != '|' {
			continue
		}
		slashes := 0
		for j := i - 1; j >= 0 && line[j] == '\\'; j-- {
			slashes++
		}
		if slashes%2 == 0 {
			return i
		}
	}
	return -1
}
