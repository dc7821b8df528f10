package main

import "github.com/mj1618/a11y-tree/cmd"

func main() {
	cmd.Execute()
}
