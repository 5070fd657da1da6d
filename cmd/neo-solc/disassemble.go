package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/r3e-network/neo-solc/compiler/neovm"
)

// newDisassembleCmd decodes compiled bytecode back into an assembly listing
// using the public opcode table. It accepts both raw binary output and the
// hex text the default output format writes.
func newDisassembleCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "disassemble <bytecode-file>",
		Short: "Decode compiled bytecode into an assembly listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return &CLIError{
					Type:    "io",
					Message: fmt.Sprintf("cannot read %s", args[0]),
					Details: err.Error(),
				}
			}
			code, err := decodeBytecode(data)
			if err != nil {
				return &CLIError{
					Type:    "usage",
					Message: fmt.Sprintf("%s does not hold bytecode", args[0]),
					Details: err.Error(),
					Hint:    "pass a file produced with -f binary or -f hex",
				}
			}
			listing, err := neovm.Listing(code)
			if err != nil {
				return &CLIError{
					Type:    "usage",
					Message: "bytecode does not decode",
					Details: err.Error(),
				}
			}
			fmt.Print(listing)
			return nil
		},
	}
}

// decodeBytecode accepts raw bytes or hex text (with or without a 0x
// prefix); hex is detected by content so both output formats round-trip.
func decodeBytecode(data []byte) ([]byte, error) {
	text := strings.TrimSpace(string(data))
	trimmed := strings.TrimPrefix(text, "0x")
	if len(trimmed) > 0 && len(trimmed)%2 == 0 && isHexText(trimmed) {
		return hex.DecodeString(trimmed)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file is empty")
	}
	return data, nil
}

func isHexText(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
