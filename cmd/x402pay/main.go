package main

import (
	"log"

	"github.com/vitwit/x402pay/cmd"
)

func main() {
	if err := cmd.RootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}
