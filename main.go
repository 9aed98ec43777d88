package main

import "ntl-systoolbox/cmd"

func main() {
	cmd.Execute()
}
