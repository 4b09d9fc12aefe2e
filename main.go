// The main package for the predb-announcer executable.
package main

import (
	"github.com/JakeFAU/predb-announcer/cmd"
)

func main() {
	cmd.Execute()
}
