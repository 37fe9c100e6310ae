package main

import "github.com/nlpforge/bertrun/internal/cli"

func main() {
	cli.Execute()
}
