// Package main provides the audiobook CLI tool.
//
// Usage:
//
//	audiobook [flags] <command> [args]
//
// Commands:
//
//	convert  - Convert documents (.pdf, .txt, .md) into audio files
//	voices   - List the voices of a speech provider
//	history  - Show past conversions
//	config   - Configuration management
//	version  - Show version information
//
// Configuration:
//
//	The CLI stores configuration in ~/.audiobook/audiobook/
//	Use 'audiobook config' commands to manage contexts.
//	Credentials may also come from a .env file in the working directory.
package main

import (
	"os"

	"github.com/haivivi/audiobook/cmd/audiobook/commands"
	"github.com/haivivi/audiobook/pkg/cli"
)

func main() {
	if err := commands.Execute(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}
