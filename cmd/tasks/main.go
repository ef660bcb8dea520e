package main

import "github.com/jpvillegas/taskmesh/internal/app"

func main() {
	app.InitDefaultLogger()
	app.MustReadEnv()
	app.MustInitApplicationLogger()

	defer app.DisconnectPostgres()

	app.MustListenAndServeTasksHTTP()
}
