package main

import (
	"os"

	"skywatch.earth/skywatch/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
