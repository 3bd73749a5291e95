package toolpath

import (
	"fmt"
	"strconv"
	"strings"
)

type Mnemonic byte

const (
	General       Mnemonic = 'G'
	Miscellaneous Mnemonic = 'M'
	ProgramNumber Mnemonic = 'O'
	ToolChange    Mnemonic = 'T'
)

func (m Mnemonic) String() string {
	switch m {
	case General:
		return "general"
	case Miscellaneous:
		return "miscellaneous"
	case ProgramNumber:
		return "program number"
	case ToolChange:
		return "tool change"
	default:
		return fmt.Sprintf("mnemonic(%c)", byte(m))
	}
}

// Letter is an upper case word letter, A to Z.
type Letter byte

type Word struct {
	Letter Letter
	Value  float64
}

func (w Word) String() string {
	return fmt.Sprintf("%c%s", w.Letter, formatNumber(w.Value))
}

// Command is one instruction on a line: a G, M, O, or T word together with the argument
// words which follow it.
type Command struct {
	Mnemonic Mnemonic
	Major    int
	Minor    int
	Args     []Word
	Line     int
}

// ValueFor returns the value of the argument with the given letter; the letter may be given in
// either case.
func (cmd Command) ValueFor(letter byte) (float64, bool) {
	l := Letter(upcaseByte(letter))
	for _, arg := range cmd.Args {
		if arg.Letter == l {
			return arg.Value, true
		}
	}
	return 0, false
}

func (cmd Command) Is(m Mnemonic, major, minor int) bool {
	return cmd.Mnemonic == m && cmd.Major == major && cmd.Minor == minor
}

func (cmd Command) String() string {
	var sb strings.Builder
	sb.WriteByte(byte(cmd.Mnemonic))
	sb.WriteString(strconv.Itoa(cmd.Major))
	if cmd.Minor != 0 {
		sb.WriteByte('.')
		sb.WriteString(strconv.Itoa(cmd.Minor))
	}
	for _, arg := range cmd.Args {
		sb.WriteByte(' ')
		sb.WriteString(arg.String())
	}
	return sb.String()
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func upcaseByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return (b - 'a') + 'A'
	}
	return b
}
