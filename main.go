package main

import "github.com/ValentinKolb/mtree/cmd"

func main() {
	cmd.Execute()
}
