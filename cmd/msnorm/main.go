// msnorm - Fixed-length chromatogram extraction tool
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/msnorm/cmd/msnorm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
