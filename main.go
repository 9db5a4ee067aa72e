package main

import "github.com/regrada-ai/finetune/cmd"

func main() {
	cmd.Execute()
}
