// Package cmd implements the ntl-systoolbox command-line interface.
//
// Three command groups mirror the toolbox modules: diag (remote server and
// MySQL diagnostics), backup (SQL dump, CSV export, local artifact checks)
// and audit (SSH fingerprinting of one host or a whole network). Run without
// a subcommand, the binary shows the same operations as numbered menus.
//
// Start with rootCmd.go and init.go for the cobra/viper wiring, then
// toolbox.go, where every operation is implemented once for both the
// subcommands and the menu.
package cmd
