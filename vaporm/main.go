package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/candicezhang0827/UCLA-CS-132/regalloc"
	"github.com/candicezhang0827/UCLA-CS-132/vapor"
)

// Standalone register allocation: Vapor in, VaporM out.

var (
	input = flag.String("i", "-", "the input Vapor file path, - for stdin")
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
	parser := &vapor.Parser{}
	program, err := parser.Parse(rd)
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
