package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/candicezhang0827/UCLA-CS-132/minijava"
	"github.com/candicezhang0827/UCLA-CS-132/regalloc"
	"github.com/candicezhang0827/UCLA-CS-132/translator"
	"github.com/candicezhang0827/UCLA-CS-132/vapor"
)

// The pipeline driver: MiniJava in, Vapor or VaporM out. Each phase aborts
// on its first error.

var (
	input = flag.String("i", "-", "the input MiniJava file path, - for stdin")
	phase = flag.String("phase", "vapor", "how far to compile: check, vapor or vaporm")
)

func main() {
	flag.Parse()
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rd, err := openInput(*input)
	if err != nil {
		return err
	}
	parser := &minijava.Parser{}
	goal, err := parser.Parse(rd)
	if err != nil {
		return err
	}
	table, err := minijava.BuildContextTable(goal)
	if err != nil {
		return err
	}
	err = minijava.TypeCheck(goal, table)
	if err != nil {
		return err
	}
	if *phase == "check" {
		fmt.Println("Program type checked successfully")
		return nil
	}
	layouts := vapor.ComputeLayouts(table)
	vaporText, err := translator.Translate(goal, table, layouts)
	if err != nil {
		return err
	}
	if *phase == "vapor" {
		fmt.Print(vaporText)
		return nil
	}
	vaporParser := &vapor.Parser{}
	program, err := vaporParser.Parse(strings.NewReader(vaporText))
	if err != nil {
		return err
	}
	vaporMText, err := regalloc.EmitProgram(program)
	if err != nil {
		return err
	}
	fmt.Print(vaporMText)
	return nil
}

func openInput(path string) (io.Reader, error) {
	if path == "-" {
		return os.Stdin, nil
	}
	return os.Open(path)
}
