package main

import "github.com/davidschlachter/lychnos/cmd"

func main() {
	cmd.Execute()
}
