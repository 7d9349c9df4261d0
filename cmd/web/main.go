package main

import "tstore_backend/internal/app"

func main() {
	app.Run()
}
