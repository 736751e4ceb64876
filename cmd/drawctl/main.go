package main

import (
	"os"

	"draw-service/internal/logger"
)

func main() {
	var ctl drawctl
	app := ctl.newApp()
	if err := app.Run(os.Args); err != nil {
		logger.Fatalf("%v", err)
	}
}
