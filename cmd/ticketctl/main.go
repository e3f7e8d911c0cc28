package main

import "github.com/ownerdesk/ticket-engine/cmd/ticketctl/cmd"

func main() {
	cmd.Execute()
}
