package main

import (
	"os"

	_ "github.com/noah-isme/sma-idcard/api/swagger"
	"github.com/noah-isme/sma-idcard/internal/cli"
)

// @title Student ID Card API
// @version 1.0.0
// @description Student registration, card templates and card exports
// @BasePath /api/v1
// @schemes http

func main() {
	if err := cli.NewRootCommand(nil).Execute(); err != nil {
		os.Exit(1)
	}
}
