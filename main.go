package main

import "github.com/johnharveymath/oxcovid19db/cmd"

func main() {
	cmd.Execute()
}
