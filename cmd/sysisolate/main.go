// sysisolate computes the view filters that isolate the systems of a
// building model.
package main

import (
	"os"

	"github.com/hupe1980/sysisolate/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
