// Package main provides a command-line utility to inspect a btreestore
// file: its header, allocator bookkeeping, and summary shape.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/scigolib/btreestore"
	"github.com/scigolib/btreestore/internal/utils"
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("Usage: btreedump <file>")
		flag.PrintDefaults()
		return
	}

	path := args[0]
	s, err := btreestore.NewFileStore(path)
	if err != nil {
		log.Fatal(utils.WrapError("opening store", err))
	}

	tree, err := btreestore.Load(s)
	if err != nil {
		log.Fatal(utils.WrapError("loading tree", err))
	}

	stats := tree.Stats()
	fmt.Printf("store:            %s\n", path)
	fmt.Printf("entries:          %d\n", stats.Entries)
	fmt.Printf("nodes:            %d\n", stats.Nodes)
	fmt.Printf("height:           %d\n", stats.Height)
	fmt.Printf("allocated chunks: %d\n", stats.AllocatedChunks)
}
