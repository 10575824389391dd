package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/moneycircle/circle/cmd/circlectl/cmd"
)

func main() {
	// A missing .env file is fine, flags and the environment still apply
	_ = godotenv.Load()

	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
