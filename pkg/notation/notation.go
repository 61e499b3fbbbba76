// Package notation reads machine descriptions in the one-line puzzle format:
//
//	[.##.] (3) (1,3) (2) (2,3) (0,2) (0,1) {3,5,4,7}
//
// The bracketed diagram gives the indicator target ('.' off, '#' on), each
// parenthesised list is one button's cell indices ("()" affects nothing), and
// the braced list gives the counter targets. Blank lines and lines starting
// with "# " are skipped.
package notation

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gitrdm/pressworks/pkg/solver"
)

// Description is one parsed machine line.
type Description struct {
	// Line is the 1-based line number in the input, or 0 for ParseLine.
	Line int

	// Lights is the indicator diagram.
	Lights []bool

	// Buttons lists every button's cell indices in input order.
	Buttons [][]int

	// Targets lists the counter targets.
	Targets []int
}

// ParseError reports a malformed line. Column is 1-based and counts bytes.
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("column %d: %s", e.Column, e.Msg)
}

// IndicatorMachine builds the machine that starts with every indicator off and
// must reach the diagram.
func (d Description) IndicatorMachine() (*solver.Machine, error) {
	return solver.NewIndicatorMachine(make([]bool, len(d.Lights)), d.Lights, d.buttons())
}

// CounterMachine builds the machine that starts with every counter at zero and
// must reach the braced targets.
func (d Description) CounterMachine() (*solver.Machine, error) {
	return solver.NewCounterMachine(make([]int, len(d.Targets)), d.Targets, d.buttons())
}

func (d Description) buttons() []solver.Button {
	out := make([]solver.Button, len(d.Buttons))
	for i, cells := range d.Buttons {
		out[i] = solver.Button{Name: formatList('(', cells, ')'), Cells: cells}
	}
	return out
}

// String renders the description back into the line format.
func (d Description) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for _, on := range d.Lights {
		if on {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('.')
		}
	}
	sb.WriteByte(']')
	for _, cells := range d.Buttons {
		sb.WriteByte(' ')
		sb.WriteString(formatList('(', cells, ')'))
	}
	sb.WriteByte(' ')
	sb.WriteString(formatList('{', d.Targets, '}'))
	return sb.String()
}

func formatList(opening byte, values []int, closing byte) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return string(opening) + strings.Join(parts, ",") + string(closing)
}

// Reader reads descriptions line by line.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{scanner: scanner}
}

// Next returns the next description, or io.EOF after the last one. A
// *ParseError rejects a single line; reading may continue after it.
func (r *Reader) Next() (Description, error) {
	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Text()
		if skip(text) {
			continue
		}
		d, err := parse(text, r.line)
		return d, err
	}
	if err := r.scanner.Err(); err != nil {
		return Description{}, fmt.Errorf("read line %d: %w", r.line+1, err)
	}
	return Description{}, io.EOF
}

// ParseAll reads every description from r and stops at the first error.
func ParseAll(r io.Reader) ([]Description, error) {
	reader := NewReader(r)
	var out []Description
	for {
		d, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, d)
	}
}

// ParseLine parses a single line. Comment and blank lines are errors here.
func ParseLine(text string) (Description, error) {
	return parse(text, 0)
}

func skip(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed == "" || trimmed == "#" || strings.HasPrefix(trimmed, "# ")
}

// parser walks one line. pos is a byte offset into text.
type parser struct {
	text string
	pos  int
	line int
}

func parse(text string, line int) (Description, error) {
	p := &parser{text: text, line: line}
	d := Description{Line: line}

	p.skipSpace()
	if p.eof() {
		return d, p.errorf("empty line")
	}

	lights, err := p.diagram()
	if err != nil {
		return d, err
	}
	d.Lights = lights

	d.Buttons = [][]int{}
	for {
		p.skipSpace()
		if p.eof() {
			return d, p.errorf("missing counter targets {...}")
		}
		if p.peek() != '(' {
			break
		}
		cells, err := p.list('(', ')')
		if err != nil {
			return d, err
		}
		d.Buttons = append(d.Buttons, cells)
	}

	if p.peek() != '{' {
		return d, p.errorf("expected '(' or '{', found %q", p.peek())
	}
	targets, err := p.list('{', '}')
	if err != nil {
		return d, err
	}
	d.Targets = targets

	p.skipSpace()
	if !p.eof() {
		return d, p.errorf("unexpected %q after counter targets", p.peek())
	}
	if len(d.Targets) != len(d.Lights) {
		return d, &ParseError{
			Line:   line,
			Column: 1,
			Msg:    fmt.Sprintf("diagram has %d indicators but %d counter targets", len(d.Lights), len(d.Targets)),
		}
	}
	return d, nil
}

func (p *parser) diagram() ([]bool, error) {
	if p.peek() != '[' {
		return nil, p.errorf("expected '[', found %q", p.peek())
	}
	p.pos++

	lights := []bool{}
	for !p.eof() {
		switch c := p.peek(); c {
		case '.':
			lights = append(lights, false)
		case '#':
			lights = append(lights, true)
		case ']':
			p.pos++
			return lights, nil
		default:
			return nil, p.errorf("invalid indicator %q", c)
		}
		p.pos++
	}
	return nil, p.errorf("unterminated diagram")
}

// list reads a comma-separated list of non-negative integers between opening
// and closing.
func (p *parser) list(opening, closing byte) ([]int, error) {
	start := p.pos
	p.pos++

	end := strings.IndexByte(p.text[p.pos:], closing)
	if end < 0 {
		p.pos = start
		return nil, p.errorf("unterminated %c", opening)
	}
	body := p.text[p.pos : p.pos+end]

	values := []int{}
	if strings.TrimSpace(body) != "" {
		offset := p.pos
		for _, field := range strings.Split(body, ",") {
			trimmed := strings.TrimSpace(field)
			n, err := strconv.Atoi(trimmed)
			if err != nil || n < 0 || trimmed[0] == '+' {
				p.pos = offset + strings.Index(field, trimmed)
				return nil, p.errorf("invalid number %q", trimmed)
			}
			values = append(values, n)
			offset += len(field) + 1
		}
	}

	p.pos += end + 1
	return values, nil
}

func (p *parser) skipSpace() {
	for !p.eof() && (p.text[p.pos] == ' ' || p.text[p.pos] == '\t' || p.text[p.pos] == '\r') {
		p.pos++
	}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.text)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.text[p.pos]
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Line: p.line, Column: p.pos + 1, Msg: fmt.Sprintf(format, args...)}
}
