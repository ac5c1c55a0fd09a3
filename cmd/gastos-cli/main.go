package main

import (
	"fmt"
	"os"

	"gastos/internal/services"
	"gastos/internal/tui"
)

func main() {
	if err := execute(defaultRunner, nil, nil); err != nil {
		if services.ValidationReason(err) != "" {
			fmt.Fprintln(os.Stderr, tui.RenderError(services.UserMessage(err)))
		} else {
			fmt.Fprintln(os.Stderr, tui.RenderError(err.Error()))
		}
		os.Exit(1)
	}
}
