package monitor

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is one parsed monitor input line.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a line into a lower-cased command name and its
// arguments.
func ParseCommand(input string) Command {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return Command{}
	}
	return Command{
		Name: strings.ToLower(parts[0]),
		Args: parts[1:],
	}
}

// ParseNumber parses $hex, 0xhex, #decimal or bare decimal.
func ParseNumber(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	base := 10
	digits := s
	switch {
	case strings.HasPrefix(s, "$"):
		base, digits = 16, s[1:]
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		base, digits = 16, s[2:]
	case strings.HasPrefix(s, "#"):
		digits = s[1:]
	}
	v, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return uint32(v), nil
}
