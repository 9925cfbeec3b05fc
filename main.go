package main

import "github.com/emariqueo1/clasificador-salcobrand/internal/app"

func main() {
	app.Main()
}
