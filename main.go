// The main package for the cindy executable.
package main

import (
	"github.com/ijug-ev/cindy/cmd"
)

func main() {
	cmd.Execute()
}
