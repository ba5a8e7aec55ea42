package main

import "github.com/ValentinKolb/cloudstorage/cmd"

func main() {
	cmd.Execute()
}
