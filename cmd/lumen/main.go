package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"lumen/pkg/compiler"
	"lumen/pkg/lexer"
	"lumen/pkg/natives"
	"lumen/pkg/parser"
	"lumen/pkg/value"
	"lumen/pkg/version"
	"lumen/pkg/vm"
)

const PROMPT = ">>> "

func main() {
	// scripts read configuration through env(); a local .env file is
	// loaded if present
	godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	command := os.Args[1]

	switch command {
	case "--version", "-v", "version":
		printVersion()
		return
	case "--help", "-h", "help":
		printUsage()
		return
	}

	// a bare .lum path runs the file
	if strings.HasSuffix(command, ".lum") {
		runFile(command)
		return
	}

	switch command {
	case "repl":
		startREPL()
	case "run":
		if len(os.Args) < 3 {
			fmt.Println("Usage: lumen run <file>")
			os.Exit(1)
		}
		runFile(os.Args[2])
	case "eval":
		if len(os.Args) < 3 {
			fmt.Println("Usage: lumen eval '<code>'")
			os.Exit(1)
		}
		evalCode(os.Args[2])
	case "disasm":
		if len(os.Args) < 3 {
			fmt.Println("Usage: lumen disasm <file>")
			os.Exit(1)
		}
		disasmFile(os.Args[2])
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Lumen Programming Language v" + version.Version)
	fmt.Println("\nUsage:")
	fmt.Println("  lumen <file.lum>         Run a Lumen script")
	fmt.Println("  lumen repl               Start interactive REPL")
	fmt.Println("  lumen run <file>         Run a Lumen script (explicit)")
	fmt.Println("  lumen eval '<code>'      Evaluate a Lumen expression")
	fmt.Println("  lumen disasm <file>      Print compiled bytecode")
	fmt.Println("  lumen version            Show version information")
	fmt.Println("  lumen help               Show this help message")
}

func printVersion() {
	fmt.Printf("Lumen %s\n", version.Version)
	fmt.Printf("Build Date: %s\n", version.BuildDate)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
}

func compileSource(src string) (*compiler.Program, error) {
	p := parser.New(lexer.New(src))
	program := p.ParseProgram()
	if len(p.Errors()) != 0 {
		return nil, fmt.Errorf("parse failed:\n  %s", strings.Join(p.Errors(), "\n  "))
	}
	return compiler.NewDebug().Compile(program)
}

func newMachine(prog *compiler.Program) *vm.VM {
	machine := vm.New(prog)
	natives.Install(machine)
	return machine
}

func runFile(filename string) {
	src, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	prog, err := compileSource(string(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if _, err := newMachine(prog).Execute(); err != nil {
		printRuntimeError(err)
		os.Exit(1)
	}
}

func evalCode(src string) {
	prog, err := compileSource(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	result, err := newMachine(prog).Execute()
	if err != nil {
		printRuntimeError(err)
		os.Exit(1)
	}
	fmt.Println(result.Inspect())
}

func disasmFile(filename string) {
	src, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	prog, err := compileSource(string(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println("== <main> ==")
	fmt.Print(prog.Main.Chunk.Code.String())
	for i, fn := range prog.Functions {
		fmt.Printf("\n== [%d] %s ==\n", i, fn.Inspect())
		fmt.Print(fn.Chunk.Code.String())
	}
}

// printRuntimeError renders the annotated form: the message plus the
// offending source text when the compiler recorded it.
func printRuntimeError(err error) {
	re, ok := err.(*value.RuntimeError)
	if !ok {
		fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "runtime error: %s\n", re.Error())
	if re.Text != "" {
		fmt.Fprintf(os.Stderr, "  %d | %s\n", re.Line, re.Text)
	}
}

func startREPL() {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Printf("Lumen REPL v%s\n", version.Version)
	fmt.Println("Type expressions or statements and press Enter")

	// one machine for the whole session so globals persist between lines
	var machine *vm.VM

	for {
		fmt.Print(PROMPT)
		if !scanner.Scan() {
			return
		}

		prog, err := compileSource(scanner.Text())
		if err != nil {
			fmt.Println(err)
			continue
		}

		if machine == nil {
			machine = newMachine(prog)
		} else {
			machine = machine.WithProgram(prog)
		}

		result, err := machine.Execute()
		if err != nil {
			printRuntimeError(err)
			continue
		}
		if result != nil {
			fmt.Println(result.Inspect())
		}
	}
}
