package main

import (
	"fmt"
	"os"

	"github.com/bregovic/shanon-sub001/internal/app"
)

func main() {
	if err := newRootCmd(app.NewApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
