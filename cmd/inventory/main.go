// Command inventory tracks household items and their quantities.
package main

import "github.com/mesh-intelligence/inventory/internal/cli"

func main() {
	cli.Execute()
}
