package main

import (
	"github.com/joho/godotenv"
	"github.com/relloyd/totes/cmd"
)

func main() {
	// A missing .env file is fine; settings then come from the environment and config file.
	_ = godotenv.Load()
	cmd.Execute()
}
