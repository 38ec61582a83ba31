// Package mapfile parses ddrescue mapfiles.
//
// The grammar is line oriented; lines end in LF or CRLF:
//
//	# comment lines
//	<pos> <status> [<pass>]          current-state line
//	# comment lines
//	<pos> <size> <status>            zero or more block lines
//
// Positions and sizes are 0x-prefixed hexadecimal, the pass counter is
// decimal, and a single optional line ending may follow the last block.
// Anything after that is an error.
package mapfile

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/deploymenttheory/go-ddcheck/internal/types"
)

const (
	constructCurrentState = "current-state line"
	constructBlock        = "block line"
	constructEnd          = "end of input"

	hexPrefix = "0x"
)

// ParseString parses the full text of a mapfile.
func ParseString(s string) (*types.MapFile, error) {
	return Parse([]byte(s))
}

// Parse parses the full contents of a mapfile. It either returns the whole
// MapFile or a *ParseError; there is no partial result.
func Parse(data []byte) (*types.MapFile, error) {
	p := &parser{data: data}

	p.skipComments()

	state, err := p.currentState()
	if err != nil {
		return nil, err
	}
	if !p.lineEnding() {
		return nil, p.errorf(ErrKindMalformedCurrentState, constructCurrentState, p.pos, "expected line ending")
	}

	p.skipComments()

	blocks, blockErr := p.blocks()

	p.lineEnding()
	if !p.atEOF() {
		if blockErr != nil {
			return nil, blockErr
		}
		return nil, p.errorf(ErrKindTrailingInput, constructEnd, p.pos, fmt.Sprintf("unexpected %q", p.data[p.pos]))
	}

	return &types.MapFile{
		CurrentState: state,
		Blocks:       blocks,
	}, nil
}

// parser is a recursive-descent cursor over the mapfile bytes. Methods that
// fail leave pos wherever they stopped; callers that backtrack restore it.
type parser struct {
	data []byte
	pos  int
}

func (p *parser) atEOF() bool {
	return p.pos >= len(p.data)
}

func (p *parser) peek() (byte, bool) {
	if p.atEOF() {
		return 0, false
	}
	return p.data[p.pos], true
}

func (p *parser) errorf(kind ErrorKind, construct string, offset int, detail string) *ParseError {
	return newParseError(p.data, kind, construct, offset, detail)
}

// lineEnding consumes LF or CRLF.
func (p *parser) lineEnding() bool {
	rest := p.data[p.pos:]
	switch {
	case len(rest) >= 1 && rest[0] == '\n':
		p.pos++
		return true
	case len(rest) >= 2 && rest[0] == '\r' && rest[1] == '\n':
		p.pos += 2
		return true
	}
	return false
}

// space1 consumes one or more spaces or tabs.
func (p *parser) space1() bool {
	start := p.pos
	for !p.atEOF() && (p.data[p.pos] == ' ' || p.data[p.pos] == '\t') {
		p.pos++
	}
	return p.pos > start
}

// skipComments consumes comment lines. A comment runs from '#' to the next
// line ending, which must be present; a '#' line that does not end in a line
// ending is left in place.
func (p *parser) skipComments() {
	for {
		c, ok := p.peek()
		if !ok || c != '#' {
			return
		}
		mark := p.pos
		p.pos++
		for !p.atEOF() && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
			p.pos++
		}
		if !p.lineEnding() {
			p.pos = mark
			return
		}
	}
}

func (p *parser) hasHexPrefix() bool {
	rest := p.data[p.pos:]
	return len(rest) >= len(hexPrefix) && string(rest[:len(hexPrefix)]) == hexPrefix
}

// hex consumes a 0x-prefixed hexadecimal number.
func (p *parser) hex(construct string, malformed ErrorKind, field string) (uint64, *ParseError) {
	if !p.hasHexPrefix() {
		return 0, p.errorf(malformed, construct, p.pos, fmt.Sprintf("expected %s%s", hexPrefix, field))
	}
	p.pos += len(hexPrefix)
	start := p.pos
	for !p.atEOF() && isHexDigit(p.data[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return 0, p.errorf(malformed, construct, start, fmt.Sprintf("expected hexadecimal digits for %s", field))
	}
	return p.number(p.data[start:p.pos], 16, construct, start, field)
}

// decimal consumes one or more decimal digits.
func (p *parser) decimal(construct string, field string) (uint64, bool, *ParseError) {
	start := p.pos
	for !p.atEOF() && isDigit(p.data[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return 0, false, nil
	}
	v, err := p.number(p.data[start:p.pos], 10, construct, start, field)
	return v, true, err
}

func (p *parser) number(digits []byte, base int, construct string, offset int, field string) (uint64, *ParseError) {
	v, err := strconv.ParseUint(string(digits), base, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, p.errorf(ErrKindNumericOverflow, construct, offset, fmt.Sprintf("%s %q exceeds 64 bits", field, digits))
		}
		return 0, p.errorf(ErrKindMalformedBlock, construct, offset, err.Error())
	}
	return v, nil
}

// currentState parses `<address> <ws> <status> [<ws> <pass>]`.
func (p *parser) currentState() (types.CurrentState, *ParseError) {
	var state types.CurrentState

	pos, err := p.hex(constructCurrentState, ErrKindMalformedCurrentState, "position")
	if err != nil {
		return state, err
	}
	state.Pos = types.Address(pos)

	if !p.space1() {
		return state, p.errorf(ErrKindMalformedCurrentState, constructCurrentState, p.pos, "expected whitespace before status")
	}

	c, ok := p.peek()
	if !ok {
		return state, p.errorf(ErrKindMalformedCurrentState, constructCurrentState, p.pos, "missing status")
	}
	status, ok := types.ParseCurrentStatus(c)
	if !ok {
		return state, p.errorf(ErrKindUnknownStatusCode, constructCurrentState, p.pos, fmt.Sprintf("%q is not a current status", c))
	}
	state.Status = status
	p.pos++

	// The pass counter is optional; whitespace not followed by digits is
	// not consumed.
	mark := p.pos
	if p.space1() {
		v, found, err := p.decimal(constructCurrentState, "pass")
		if err != nil {
			return state, err
		}
		if found {
			pass := types.Pass(v)
			state.Pass = &pass
		} else {
			p.pos = mark
		}
	}

	return state, nil
}

// blocks parses block lines separated by line endings. Parsing stops at the
// first line that is not a block; the returned error describes that line if
// it looked like a block (started with 0x), so Parse can report it instead of
// a generic trailing-input error.
func (p *parser) blocks() ([]types.Block, *ParseError) {
	var blocks []types.Block
	for {
		mark := p.pos
		if len(blocks) > 0 && !p.lineEnding() {
			return blocks, nil
		}
		attempted := p.hasHexPrefix()
		b, err := p.block()
		if err != nil {
			p.pos = mark
			if attempted {
				return blocks, err
			}
			return blocks, nil
		}
		blocks = append(blocks, b)
	}
}

// block parses `<address> <ws> <size> <ws> <status>`.
func (p *parser) block() (types.Block, *ParseError) {
	var b types.Block

	pos, err := p.hex(constructBlock, ErrKindMalformedBlock, "position")
	if err != nil {
		return b, err
	}
	b.Pos = types.Address(pos)

	if !p.space1() {
		return b, p.errorf(ErrKindMalformedBlock, constructBlock, p.pos, "expected whitespace before size")
	}

	size, err := p.hex(constructBlock, ErrKindMalformedBlock, "size")
	if err != nil {
		return b, err
	}
	b.Size = types.Size(size)

	if !p.space1() {
		return b, p.errorf(ErrKindMalformedBlock, constructBlock, p.pos, "expected whitespace before status")
	}

	c, ok := p.peek()
	if !ok {
		return b, p.errorf(ErrKindMalformedBlock, constructBlock, p.pos, "missing status")
	}
	status, ok := types.ParseBlockStatus(c)
	if !ok {
		return b, p.errorf(ErrKindUnknownStatusCode, constructBlock, p.pos, fmt.Sprintf("%q is not a block status", c))
	}
	b.Status = status
	p.pos++

	return b, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
