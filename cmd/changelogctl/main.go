package main

import "changelog/cmd/changelogctl/cmd"

func main() {
	cmd.Execute()
}
