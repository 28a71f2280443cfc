/*
Copyright © 2025 Fulmen HQ <info@fulmenhq.dev>
*/
package main

import "github.com/fulmenhq/quench/cmd"

func main() {
	cmd.Execute()
}
