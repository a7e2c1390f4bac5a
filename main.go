package main

import "github.com/tko-aly/usersvc/cmd"

func main() {
	cmd.Execute()
}
