package main

import "github.com/KaramelBytes/geoagg-cli/cmd"

func main() {
	cmd.Execute()
}
