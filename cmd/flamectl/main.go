package main

import "github.com/zanzhit/flameguard/internal/cli"

func main() {
	cli.Execute()
}
