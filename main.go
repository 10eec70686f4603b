package main

import "github.com/nextlevelbuilder/llmgw/cmd/gateway"

func main() {
	cmd.Execute()
}
