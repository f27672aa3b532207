package main

import "daily-reward-system/cli"

func main() {
	cli.Execute()
}
