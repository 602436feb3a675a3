package main

import "github.com/minhvu/geofetch/internal/cli"

func main() {
	cli.Execute()
}
