package main

import (
	"github.com/TMEades/solocreatorhub-ai-sub000/cmd"
)

func main() {
	cmd.Execute()
}
