package main

import "github.com/oshokin/electron-packager/cmd/electron-packager/cmd"

func main() {
	cmd.Execute()
}
