package main

import "github.com/icco/touchseq/cmd"

func main() {
	cmd.Execute()
}
