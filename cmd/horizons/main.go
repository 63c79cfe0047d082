package main

import "github.com/joho/godotenv"

func main() {
	// Optional .env for HORIZONS_* variables; absence is not an error.
	_ = godotenv.Load()
	Execute()
}
