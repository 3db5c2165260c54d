package main

import (
	"errors"
	"fmt"
	"os"

	"jordanella.com/seed-finder-go/internal/bot"
)

func main() {
	if err := execute(os.Args[1:]); err != nil {
		if errors.Is(err, bot.ErrTerminated) {
			fmt.Fprintln(os.Stderr, "Terminated by operator")
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
