package main

import "facultyleave/internal/app/server"

func main() {
	server.Run()
}
