package main

import "github.com/platform-mesh/graphql-validation/cmd"

func main() {
	cmd.Execute()
}
