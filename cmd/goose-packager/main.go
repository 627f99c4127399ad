package main

import "github.com/block/goose-packager/cmd/goose-packager/cmd"

func main() {
	cmd.Execute()
}
