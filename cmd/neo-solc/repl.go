package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/r3e-network/neo-solc/compiler"
	"github.com/r3e-network/neo-solc/compiler/neovm"
)

// The repl compiles each entered snippet and prints its assembly listing.
// Bytecode is never executed; this is an inspection tool.
func newReplCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactively compile snippets and inspect their assembly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(flags)
		},
	}
}

func runRepl(flags *cliFlags) error {
	useColor := ShouldUseColor(flags.color)

	rl, err := readline.New(Colorize("yul> ", ColorGreen, useColor))
	if err != nil {
		return &CLIError{Type: "io", Message: "cannot open terminal", Details: err.Error()}
	}
	defer rl.Close()

	fmt.Println("neo-solc repl: enter a Yul block, :level N to change optimization, :quit to exit")
	level := flags.optimization

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		input := strings.TrimSpace(line)
		switch {
		case input == "":
			continue
		case input == ":quit" || input == ":q":
			return nil
		case strings.HasPrefix(input, ":level"):
			if _, err := fmt.Sscanf(input, ":level %d", &level); err != nil {
				fmt.Println("usage: :level N   (0-3)")
			} else {
				fmt.Printf("optimization level %d\n", level)
			}
			continue
		}

		// bare statements are wrapped in a block for convenience
		if !strings.HasPrefix(input, "{") && !strings.HasPrefix(input, "object") &&
			!strings.HasPrefix(input, "function") {
			input = "{ " + input + " }"
		}

		opts := compiler.DefaultOptions()
		opts.OptimizationLevel = level
		result := compiler.Compile(input, opts)
		PrintDiagnostics(rl.Stderr(), result.Diagnostics, useColor)
		if !result.Ok() {
			continue
		}
		fmt.Printf("%s (%d bytes, ~%d gas)\n",
			Colorize("bytecode", ColorCyan, useColor),
			len(result.Artifact.Bytecode), result.Artifact.GasEstimate)
		// decode the emitted bytes through the public opcode table; fall
		// back to the generator's listing where a bare data push collides
		// with a table opcode
		listing, err := neovm.Listing(result.Artifact.Bytecode)
		if err != nil {
			listing = result.Artifact.Assembly
		}
		fmt.Print(listing)
	}
}
