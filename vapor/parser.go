package vapor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Text parser for the Vapor surface the translator emits. Source lines are
// 1-based and become the program points the liveness analysis runs on.

type Parser struct {
	currentLine int
	program     *Program
	function    *VFunction
	segment     *VDataSegment
}

func (parser *Parser) Parse(rd io.Reader) (*Program, error) {
	parser.program = &Program{}
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		parser.currentLine++
		err := parser.parseLine(scanner.Text())
		if err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return parser.program, nil
}

func (parser *Parser) parseLine(raw string) error {
	line := strings.TrimSpace(raw)
	if line == "" {
		return nil
	}
	switch {
	case strings.HasPrefix(line, "const "):
		parser.function = nil
		parser.segment = &VDataSegment{Name: strings.TrimSpace(strings.TrimPrefix(line, "const "))}
		parser.program.DataSegments = append(parser.program.DataSegments, parser.segment)
		return nil
	case strings.HasPrefix(line, "func "):
		parser.segment = nil
		return parser.parseFunctionHeader(line)
	case parser.segment != nil && strings.HasPrefix(line, ":"):
		parser.segment.Values = append(parser.segment.Values, line)
		return nil
	}
	if parser.function == nil {
		return parser.makeError(line, "instruction outside of function")
	}
	if strings.HasSuffix(line, ":") && !strings.ContainsAny(line, " =[") {
		parser.function.Labels = append(parser.function.Labels, &VCodeLabel{
			Ident: strings.TrimSuffix(line, ":"),
			Line:  parser.currentLine,
		})
		return nil
	}
	instr, err := parser.parseInstr(line)
	if err != nil {
		return err
	}
	instr.Line = parser.currentLine
	parser.function.Body = append(parser.function.Body, instr)
	return nil
}

// func Name(p1 p2 ...)
func (parser *Parser) parseFunctionHeader(line string) error {
	open := strings.Index(line, "(")
	close := strings.LastIndex(line, ")")
	if open < 0 || close < open {
		return parser.makeError(line, "incorrect function header")
	}
	function := &VFunction{
		Name:      strings.TrimSpace(line[len("func "):open]),
		ParamLine: parser.currentLine,
	}
	params := strings.Fields(line[open+1 : close])
	function.Params = append(function.Params, params...)
	parser.program.Functions = append(parser.program.Functions, function)
	parser.function = function
	return nil
}

func (parser *Parser) parseInstr(line string) (*VInstr, error) {
	switch {
	case strings.HasPrefix(line, "if0 "):
		return parser.parseBranch(line[len("if0 "):], false)
	case strings.HasPrefix(line, "if "):
		return parser.parseBranch(line[len("if "):], true)
	case strings.HasPrefix(line, "goto "):
		target := strings.TrimSpace(line[len("goto "):])
		if !strings.HasPrefix(target, ":") {
			return nil, parser.makeError(line, "incorrect goto target")
		}
		return &VInstr{TP: VGotoTP, Instr: &VGoto{Target: target[1:]}}, nil
	case line == "ret":
		return &VInstr{TP: VReturnTP, Instr: &VReturn{}}, nil
	case strings.HasPrefix(line, "ret "):
		value, err := parser.parseOperand(strings.TrimSpace(line[len("ret "):]))
		if err != nil {
			return nil, err
		}
		return &VInstr{TP: VReturnTP, Instr: &VReturn{Value: &value}}, nil
	}
	eq := parser.findAssignEqual(line)
	if eq < 0 {
		// Effect-only call or builtin like PrintIntS(x), Error("...").
		return parser.parseCallOrBuiltIn(line, nil)
	}
	lhs, rhs := strings.TrimSpace(line[:eq]), strings.TrimSpace(line[eq+1:])
	if strings.HasPrefix(lhs, "[") {
		memRef, err := parser.parseMemRef(lhs)
		if err != nil {
			return nil, err
		}
		source, err := parser.parseOperand(rhs)
		if err != nil {
			return nil, err
		}
		return &VInstr{TP: VMemWriteTP, Instr: &VMemWrite{Dest: memRef, Source: source}}, nil
	}
	dest, err := parser.parseOperand(lhs)
	if err != nil {
		return nil, err
	}
	if !dest.IsVariable() {
		return nil, parser.makeError(line, "assignment destination is not a variable")
	}
	switch {
	case strings.HasPrefix(rhs, "["):
		memRef, err := parser.parseMemRef(rhs)
		if err != nil {
			return nil, err
		}
		return &VInstr{TP: VMemReadTP, Instr: &VMemRead{Dest: dest, Source: memRef}}, nil
	case strings.Contains(rhs, "("):
		return parser.parseCallOrBuiltIn(rhs, &dest)
	default:
		source, err := parser.parseOperand(rhs)
		if err != nil {
			return nil, err
		}
		return &VInstr{TP: VAssignTP, Instr: &VAssign{Dest: dest, Source: source}}, nil
	}
}

// findAssignEqual finds the top-level = of an assignment, ignoring = inside
// string literals.
func (parser *Parser) findAssignEqual(line string) int {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inString = !inString
		case '=':
			if !inString {
				return i
			}
		}
	}
	return -1
}

// if / if0: cond goto :target
func (parser *Parser) parseBranch(rest string, positive bool) (*VInstr, error) {
	parts := strings.Fields(rest)
	if len(parts) != 3 || parts[1] != "goto" || !strings.HasPrefix(parts[2], ":") {
		return nil, parser.makeError(rest, "incorrect branch")
	}
	cond, err := parser.parseOperand(parts[0])
	if err != nil {
		return nil, err
	}
	return &VInstr{TP: VBranchTP, Instr: &VBranch{Positive: positive, Cond: cond, Target: parts[2][1:]}}, nil
}

// call addr(args) or BuiltInOp(args)
func (parser *Parser) parseCallOrBuiltIn(text string, dest *VOperand) (*VInstr, error) {
	open := strings.Index(text, "(")
	close := strings.LastIndex(text, ")")
	if open < 0 || close < open {
		return nil, parser.makeError(text, "incorrect call")
	}
	args, err := parser.parseOperands(text[open+1 : close])
	if err != nil {
		return nil, err
	}
	head := strings.TrimSpace(text[:open])
	if strings.HasPrefix(head, "call ") || head == "call" {
		addr, err := parser.parseOperand(strings.TrimSpace(strings.TrimPrefix(head, "call")))
		if err != nil {
			return nil, err
		}
		return &VInstr{TP: VCallTP, Instr: &VCall{Dest: dest, Addr: addr, Args: args}}, nil
	}
	return &VInstr{TP: VBuiltInTP, Instr: &VBuiltIn{Dest: dest, Op: head, Args: args}}, nil
}

// [base + offset] with the offset optional and spaces around + optional.
func (parser *Parser) parseMemRef(text string) (VMemRef, error) {
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(text), "["), "]"))
	base, offsetText := inner, ""
	if plus := strings.Index(inner, "+"); plus >= 0 {
		base, offsetText = strings.TrimSpace(inner[:plus]), strings.TrimSpace(inner[plus+1:])
	}
	baseOperand, err := parser.parseOperand(base)
	if err != nil {
		return VMemRef{}, err
	}
	if !baseOperand.IsVariable() {
		return VMemRef{}, parser.makeError(text, "memory base is not a variable")
	}
	offset := 0
	if offsetText != "" {
		offset, err = strconv.Atoi(offsetText)
		if err != nil {
			return VMemRef{}, parser.makeError(text, "incorrect memory offset")
		}
	}
	return VMemRef{Base: baseOperand, Offset: offset}, nil
}

// parseOperands splits a call argument list, keeping quoted strings whole.
func (parser *Parser) parseOperands(text string) ([]VOperand, error) {
	var operands []VOperand
	text = strings.TrimSpace(text)
	for text != "" {
		var raw string
		if text[0] == '"' {
			end := strings.Index(text[1:], "\"")
			if end < 0 {
				return nil, parser.makeError(text, "incorrect string operand")
			}
			raw, text = text[:end+2], strings.TrimSpace(text[end+2:])
		} else if space := strings.IndexByte(text, ' '); space >= 0 {
			raw, text = text[:space], strings.TrimSpace(text[space+1:])
		} else {
			raw, text = text, ""
		}
		operand, err := parser.parseOperand(raw)
		if err != nil {
			return nil, err
		}
		operands = append(operands, operand)
	}
	return operands, nil
}

func (parser *Parser) parseOperand(raw string) (VOperand, error) {
	if raw == "" {
		return VOperand{}, parser.makeError(raw, "empty operand")
	}
	switch {
	case raw[0] == ':':
		return VOperand{TP: LabelOperand, Value: raw}, nil
	case raw[0] == '"':
		if len(raw) < 2 || raw[len(raw)-1] != '"' {
			return VOperand{}, parser.makeError(raw, "incorrect string operand")
		}
		return VOperand{TP: StringOperand, Value: raw[1 : len(raw)-1]}, nil
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		_, err := strconv.Atoi(raw)
		if err != nil {
			return VOperand{}, parser.makeError(raw, "incorrect integer operand")
		}
		return VOperand{TP: IntOperand, Value: raw}, nil
	default:
		return VOperand{TP: VarOperand, Value: raw}, nil
	}
}

func (parser *Parser) makeError(near string, msg string) error {
	return errors.New(fmt.Sprintf("vapor parser error near %s at line %d, msg: %s", near, parser.currentLine, msg))
}
