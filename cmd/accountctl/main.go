package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/authcore/internal/admin"
)

func main() {
	if err := admin.NewRootCommand(admin.OpenStorage).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
