package cmd

import "os"

// exitFunc is os.Exit outside of tests, which replace it to capture the exit
// code.
var exitFunc = os.Exit
