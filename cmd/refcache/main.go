package main

import (
	"context"
	"fmt"
	"os"

	"github.com/unkn0wn-root/refcache/internal/cli"
)

func main() {
	if err := cli.NewRootCmd(cli.OpenFile).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "refcache:", err)
		os.Exit(1)
	}
}
