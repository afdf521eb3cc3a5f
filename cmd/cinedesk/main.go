package main

import "github.com/cinedesk/cinedesk/cmd/cinedesk/cmd"

func main() {
	cmd.Execute()
}
