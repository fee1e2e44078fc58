package main

import "mediareview/cmd/manage/command"

func main() {
	command.Execute()
}
