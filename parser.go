package toolpath

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"
	"strconv"

	"github.com/leftmike/toolpath/internal/logging"
)

type Parser struct {
	Scanner io.ByteScanner

	// Params holds the parameters assigned and read by the program; a new set is used if nil.
	Params *Parameters

	// Comment is called with the text of each comment: ; and % to the end of the line, or
	// inline delimited by ( and ).
	Comment func(comment string)

	withinLine  bool // Used to validate that Nnnn is at the beginning of a line
	sawChecksum bool // Used to validate that *nnn is at the end of a line
	lineEnded   bool
	lastEOF     bool
	lastByte    byte
	done        bool
	line        int // Count of lines
	virtualLine int // Lines as tracked by Nnnn
}

type scanError struct {
	err error
}

func (se scanError) Error() string {
	return se.err.Error()
}

func (se scanError) Unwrap() error {
	return se.err
}

type assignOp byte

const (
	assign assignOp = iota
	assignPlus
	assignMinus
	assignTimes
	assignDivide
	plusPlus
	minusMinus
)

var (
	calls = map[string]func(n float64) float64{
		"ABS":   math.Abs,
		"SQRT":  math.Sqrt,
		"ROUND": math.Round,
		"FIX":   math.Floor,
		"FUP":   math.Ceil,
	}
)

// Parse returns the commands of the next line which has any; io.EOF is returned at the end of
// the input. After a failed line, Parse may be called again to continue with the next line.
func (p *Parser) Parse() ([]Command, error) {
	if p.Params == nil {
		p.Params = NewParameters()
	}
	if p.line == 0 {
		p.line = 1
		p.virtualLine = 1
	}

	for {
		if p.done {
			return nil, io.EOF
		}
		cmds, err := p.parseLine()
		if err != nil {
			return nil, err
		}
		if len(cmds) > 0 {
			return cmds, nil
		}
	}
}

func (p *Parser) parseLine() (cmds []Command, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			err = r.(error)
			cmds = nil

			var se scanError
			if errors.As(err, &se) {
				p.done = true
			} else if !p.lineEnded {
				if p.lastByte == '\n' || p.lastByte == '\r' {
					p.nextLine(p.lastByte)
				} else {
					p.discardLine()
				}
			}
		}
	}()

	p.lineEnded = false
	var cur *Command
	for {
		b := p.readByte()
		if p.lastEOF {
			p.lineEnded = true
			p.done = true
			break
		}

		if b == '\n' || b == '\r' {
			p.endLine(b)
			break
		} else if b == ' ' || b == '\t' {
			continue
		} else if b == ';' || b == '%' {
			var bytes []byte
			for {
				b = p.readByte()
				if p.lastEOF {
					p.lineEnded = true
					p.done = true
					break
				}
				if b == '\n' || b == '\r' {
					p.endLine(b)
					break
				}
				bytes = append(bytes, b)
			}
			p.comment(string(bytes))
			break
		} else if b == '(' {
			var bytes []byte
			for {
				b = p.readByte()
				if p.lastEOF || b == '\n' || b == '\r' {
					p.error("inline comments must be on one line")
				}
				if b == ')' {
					break
				}
				bytes = append(bytes, b)
			}
			p.comment(string(bytes))
		} else if b == '*' {
			// Parse and ignore *nnn; check it is the last word on the line.

			p.wantInteger()
			p.sawChecksum = true
			p.withinLine = true
		} else if b == '#' {
			if p.sawChecksum {
				p.error("checksum (*nnn) must be at end of line")
			}

			p.parseAssignment()
			p.withinLine = true
		} else {
			b = upcaseByte(b)
			if b < 'A' || b > 'Z' {
				p.error(fmt.Sprintf("unexpected character: %q", b))
			}
			if p.sawChecksum {
				p.error("checksum (*nnn) must be at end of line")
			}
			if sym := p.parseSymbol(b); sym != "" {
				p.error(fmt.Sprintf("unexpected keyword: %s", sym))
			}

			if b == 'N' {
				// Parse Nnnn.

				if p.withinLine {
					p.error("N code must be first on line")
				}
				p.skipSpace()
				num := p.wantInteger()
				if num < p.virtualLine {
					p.error(fmt.Sprintf("N%d invalid", num))
				}
				p.virtualLine = num
				p.withinLine = true
				continue
			}

			val := p.parseValue()
			p.withinLine = true

			switch Mnemonic(b) {
			case General, Miscellaneous, ProgramNumber, ToolChange:
				if val < 0 {
					p.error(fmt.Sprintf("expected a non-negative number: %c%s", b,
						formatNumber(val)))
				}
				major := math.Floor(val)
				cmds = append(cmds, Command{
					Mnemonic: Mnemonic(b),
					Major:    int(major),
					Minor:    int(math.Round((val - major) * 10)),
					Line:     p.line,
				})
				cur = &cmds[len(cmds)-1]
			default:
				if cur == nil {
					// Arguments without a command on the line are dropped.
					continue
				}
				if _, ok := cur.ValueFor(b); ok {
					p.error(fmt.Sprintf("duplicate arg specified: %c", b))
				}
				cur.Args = append(cur.Args, Word{Letter: Letter(b), Value: val})
			}
		}
	}

	return cmds, nil
}

func (p *Parser) comment(s string) {
	if p.Comment != nil {
		p.Comment(s)
	}
}

func (p *Parser) endLine(b byte) {
	p.lastByte = 0
	p.nextLine(b)
}

// nextLine finishes the current line; b is the line end which was just read. It reads the
// scanner directly so that it is safe to use while recovering from an error.
func (p *Parser) nextLine(b byte) {
	if b == '\r' {
		n, err := p.Scanner.ReadByte()
		if err == nil && n != '\n' {
			p.Scanner.UnreadByte()
		}
	}

	p.lineEnded = true
	p.withinLine = false
	p.sawChecksum = false
	p.line += 1
	p.virtualLine += 1
}

func (p *Parser) discardLine() {
	for {
		b, err := p.Scanner.ReadByte()
		if err != nil {
			p.lineEnded = true
			p.done = true
			return
		}
		if b == '\n' || b == '\r' {
			p.nextLine(b)
			return
		}
	}
}

func (p *Parser) error(msg string) {
	panic(fmt.Errorf("%s: %s", p.where(), msg))
}

func (p *Parser) where() string {
	if p.line == p.virtualLine {
		return fmt.Sprintf("%d", p.line)
	}
	return fmt.Sprintf("%d(%d)", p.line, p.virtualLine)
}

func (p *Parser) readByte() byte {
	b, err := p.Scanner.ReadByte()
	if err != nil {
		if err == io.EOF {
			p.lastEOF = true
			p.lastByte = 0
			return 0
		}
		panic(scanError{fmt.Errorf("%s: %w", p.where(), err)})
	}
	p.lastEOF = false
	p.lastByte = b
	return b
}

func (p *Parser) unreadByte() {
	if p.lastEOF {
		return
	}
	p.lastByte = 0
	err := p.Scanner.UnreadByte()
	if err != nil {
		panic(scanError{fmt.Errorf("%s: %w", p.where(), err)})
	}
}

func (p *Parser) skipSpace() {
	for {
		b := p.readByte()
		if p.lastEOF {
			return
		}
		if b != ' ' && b != '\t' {
			break
		}
	}
	p.unreadByte()
}

func (p *Parser) wantInteger() int {
	var num int64
	var cnt int
	for {
		b := p.readByte()
		if !p.lastEOF && b >= '0' && b <= '9' {
			cnt += 1
			num = (num * 10) + int64(b-'0')
			if num > math.MaxInt32 {
				p.error("number too big")
			}
		} else {
			break
		}
	}

	if cnt == 0 {
		p.error("expected a number")
	}

	p.unreadByte()
	return int(num)
}

func (p *Parser) parseNumber() float64 {
	var bytes []byte
	b := p.readByte()
	if !p.lastEOF && (b == '-' || b == '+') {
		bytes = append(bytes, b)
	} else {
		p.unreadByte()
	}

	var cnt int
	var sawDot bool
	for {
		b = p.readByte()
		if p.lastEOF {
			break
		}
		if b >= '0' && b <= '9' {
			cnt += 1
		} else if b == '.' && !sawDot {
			sawDot = true
		} else {
			p.unreadByte()
			break
		}
		bytes = append(bytes, b)
	}

	if cnt == 0 {
		p.error("expected a number")
	}

	f, err := strconv.ParseFloat(string(bytes), 64)
	if err != nil {
		p.error(fmt.Sprintf("expected a number: %s", err))
	}
	return f
}

// parseValue parses the value of a word: a number, a parameter, or a bracketed expression.
func (p *Parser) parseValue() float64 {
	p.skipSpace()
	b := p.readByte()
	switch {
	case p.lastEOF:
		p.error("expected a number")
	case b == '#':
		return p.parameterValue()
	case b == '[':
		val := p.parseExpr()
		p.wantByte(']')
		return val
	}

	p.unreadByte()
	return p.parseNumber()
}

/*
<expr> = <term> [('+' | '-') <term> ...]
<term> = <factor> [('*' | '/') <factor> ...]
<factor> = <num>
    | ('-' | '+') <factor>
    | '[' <expr> ']'
    | '#' <param>
    | <func> '[' <expr> ']'
*/

func (p *Parser) parseExpr() float64 {
	val := p.parseTerm()
	for {
		p.skipSpace()
		b := p.readByte()
		if p.lastEOF {
			return val
		}
		switch b {
		case '+':
			val += p.parseTerm()
		case '-':
			val -= p.parseTerm()
		default:
			p.unreadByte()
			return val
		}
	}
}

func (p *Parser) parseTerm() float64 {
	val := p.parseFactor()
	for {
		p.skipSpace()
		b := p.readByte()
		if p.lastEOF {
			return val
		}
		switch b {
		case '*':
			val *= p.parseFactor()
		case '/':
			d := p.parseFactor()
			if d == 0 {
				p.error("division by zero")
			}
			val /= d
		default:
			p.unreadByte()
			return val
		}
	}
}

func (p *Parser) parseFactor() float64 {
	p.skipSpace()
	b := p.readByte()
	if p.lastEOF {
		p.error("expected an expression")
	}

	switch b {
	case '-':
		return -p.parseFactor()
	case '+':
		return p.parseFactor()
	case '[':
		val := p.parseExpr()
		p.wantByte(']')
		return val
	case '#':
		return p.parameterValue()
	}

	b = upcaseByte(b)
	if b >= 'A' && b <= 'Z' {
		sym := p.parseSymbol(b)
		if sym == "" {
			p.error("expected a function name")
		}
		fn, ok := calls[sym]
		if !ok {
			p.error(fmt.Sprintf("function not found: %s", sym))
		}
		p.skipSpace()
		p.wantByte('[')
		val := fn(p.parseExpr())
		p.wantByte(']')
		if math.IsNaN(val) {
			p.error(fmt.Sprintf("%s: result is not a number", sym))
		}
		return val
	}

	p.unreadByte()
	return p.parseNumber()
}

func (p *Parser) wantByte(want byte) {
	p.skipSpace()
	b := p.readByte()
	if p.lastEOF {
		p.error(fmt.Sprintf("expected %c", want))
	}
	if b != want {
		p.error(fmt.Sprintf("expected %c, got %c", want, b))
	}
}

func symbolByte(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

// parseSymbol returns a keyword or function name starting with b; if b is not followed by
// another letter, "" is returned and nothing is consumed.
func (p *Parser) parseSymbol(b byte) string {
	n := upcaseByte(p.readByte())
	if p.lastEOF || !symbolByte(n) {
		p.unreadByte()
		return ""
	}
	symbol := []byte{b, n}
	for {
		n = upcaseByte(p.readByte())
		if p.lastEOF {
			break
		}
		if !symbolByte(n) {
			p.unreadByte()
			break
		}
		symbol = append(symbol, n)
	}
	return string(symbol)
}

func parameterByte(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b == '_'
}

func (p *Parser) parseParameter() (int, string) {
	b := p.readByte()
	if p.lastEOF {
		p.error("expected parameter name or number")
	}

	if b >= '0' && b <= '9' {
		num := int(b - '0')
		for {
			b = p.readByte()
			if p.lastEOF {
				break
			}
			if b < '0' || b > '9' {
				p.unreadByte()
				break
			}
			num = num*10 + int(b-'0')
			if num > maxNumParam {
				p.error("number parameter too big")
			}
		}
		return num, ""
	} else if parameterByte(b) || b == '<' {
		var delim bool
		if b == '<' {
			delim = true
			b = p.readByte()
			if p.lastEOF || !parameterByte(b) {
				p.error("expected parameter name")
			}
			if b >= '0' && b <= '9' {
				p.error("bracketed (#<>) numeric parameters not allowed")
			}
		}

		name := []byte{b}
		for {
			b = p.readByte()
			if !p.lastEOF && parameterByte(b) {
				name = append(name, b)
			} else {
				break
			}
		}

		if delim {
			if p.lastEOF || b != '>' {
				p.error("missing > at end of parameter")
			}
		} else {
			p.unreadByte()
		}
		return 0, string(name)
	}

	p.error(fmt.Sprintf("expected parameter name or number; got %c", b))
	return 0, ""
}

func (p *Parser) parameterValue() float64 {
	num, name := p.parseParameter()
	var val float64
	var err error
	if name == "" {
		val, err = p.Params.Num(num)
	} else {
		val, err = p.Params.Name(name)
	}
	if err != nil {
		p.error(err.Error())
	}
	return val
}

func (p *Parser) parseAssignOp() assignOp {
	p.skipSpace()
	b := p.readByte()
	if p.lastEOF {
		p.error("expected an assignment operator (=, +=, -=, *=, /=, ++, --)")
	}
	if b == '=' {
		return assign
	}

	if b == '-' || b == '+' || b == '*' || b == '/' {
		n := p.readByte()
		switch {
		case p.lastEOF:
		case b == '-' && n == '-':
			return minusMinus
		case b == '-' && n == '=':
			return assignMinus
		case b == '+' && n == '+':
			return plusPlus
		case b == '+' && n == '=':
			return assignPlus
		case b == '*' && n == '=':
			return assignTimes
		case b == '/' && n == '=':
			return assignDivide
		}
	}

	p.error("expected an assignment operator (=, +=, -=, *=, /=, ++, --)")
	return 0
}

func (p *Parser) parseAssignment() {
	num, name := p.parseParameter()
	op := p.parseAssignOp()

	var val float64
	if op == plusPlus || op == minusMinus {
		val = 1
	} else {
		val = p.parseExpr()
	}

	if op != assign {
		var cur float64
		var err error
		if name == "" {
			cur, err = p.Params.Num(num)
		} else {
			cur, err = p.Params.Name(name)
		}
		if err != nil {
			p.error(err.Error())
		}

		switch op {
		case assignPlus, plusPlus:
			val = cur + val
		case assignMinus, minusMinus:
			val = cur - val
		case assignTimes:
			val = cur * val
		case assignDivide:
			if val == 0 {
				p.error("division by zero")
			}
			val = cur / val
		default:
			panic(fmt.Sprintf("unexpected assign op: %d", op))
		}
	}

	if name == "" {
		err := p.Params.SetNum(num, val)
		if err != nil {
			p.error(err.Error())
		}
	} else {
		p.Params.SetName(name, val)
	}
}

// ReadCommands parses all of r. Lines which fail to parse are logged and skipped; only an error
// reading r is returned.
func ReadCommands(r io.Reader, logger *slog.Logger) ([]Command, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	p := Parser{
		Scanner: bufio.NewReader(r),
	}

	var cmds []Command
	for {
		line, err := p.Parse()
		if err == io.EOF {
			return cmds, nil
		} else if err != nil {
			var se scanError
			if errors.As(err, &se) {
				return cmds, se.err
			}
			logger.Warn("skipping line", "err", err)
			continue
		}
		cmds = append(cmds, line...)
	}
}
