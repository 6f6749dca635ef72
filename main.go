package main

import "api_presale/cmd"

func main() {
	cmd.Execute()
}
