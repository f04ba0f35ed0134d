// surgery inspects images for embedded metadata and writes metadata-free
// copies next to them.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
