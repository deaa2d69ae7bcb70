package main

import (
	"os"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
