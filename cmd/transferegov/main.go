package main

import (
	"transferegov-backend/cmd/transferegov/commands"
	"transferegov-backend/lib/util/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
