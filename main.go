package main

import "github.com/Alijeyrad/simward_backend/cmd"

func main() {
	cmd.Execute()
}
