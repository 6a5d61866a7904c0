package main

import "github.com/tansive/tansive-tenancy/internal/cli"

func main() {
	cli.Execute()
}
