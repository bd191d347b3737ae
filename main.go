package main

import "github.com/notargets/fdmpoisson/cmd"

func main() {
	cmd.Execute()
}
