// Command multirag answers questions from a vector store, a knowledge graph
// and web search.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
