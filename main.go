package main

import "github.com/iksnae/career-chat/cmd"

func main() {
	cmd.Execute()
}
