package main

import (
	"fmt"
	"os"

	"lumen/pkg/compiler"
	"lumen/pkg/lexer"
	"lumen/pkg/parser"
	"lumen/pkg/value"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: inspect_bytecode '<code>'")
		os.Exit(1)
	}

	p := parser.New(lexer.New(os.Args[1]))
	program := p.ParseProgram()
	if len(p.Errors()) != 0 {
		fmt.Println("Parser errors:")
		for _, msg := range p.Errors() {
			fmt.Printf("  %s\n", msg)
		}
		os.Exit(1)
	}

	prog, err := compiler.New().Compile(program)
	if err != nil {
		fmt.Printf("Compiler error: %s\n", err)
		os.Exit(1)
	}

	printChunk("<main>", prog.Main.Chunk)
	for i, fn := range prog.Functions {
		fmt.Println()
		printChunk(fmt.Sprintf("[%d] %s", i, fn.Inspect()), fn.Chunk)
	}
}

func printChunk(name string, chunk *value.Chunk) {
	fmt.Printf("== %s ==\n", name)
	fmt.Printf("Constants (%d):\n", len(chunk.Constants))
	for i, c := range chunk.Constants {
		fmt.Printf("  [%d] %s\n", i, c.Inspect())
	}
	fmt.Printf("Instructions (%d bytes):\n", len(chunk.Code))
	fmt.Print(chunk.Code.String())
}
