package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/commons/internal/command"
	"github.com/mattn/go-shellwords"
)

// handler is the plugin entry point the console feeds.
type handler interface {
	OnCommand(ctx context.Context, sender command.Sender, root string, args []string) bool
}

type repl struct {
	host   handler
	sender command.Sender
	in     io.Reader
	out    io.Writer
	prompt string
}

// run reads one command per line until EOF, exit/quit, or ctx is done.
func (r *repl) run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.in)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if r.prompt != "" {
			fmt.Fprint(r.out, r.prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		words, err := shellwords.Parse(scanner.Text())
		if err != nil {
			fmt.Fprintf(r.out, "parse error: %v\n", err)
			continue
		}
		if len(words) == 0 {
			continue
		}
		switch strings.ToLower(words[0]) {
		case "exit", "quit":
			return nil
		}
		r.host.OnCommand(ctx, r.sender, words[0], words[1:])
	}
}
