package main

import "github.com/justsurfingit/job-tracker/internal/cli"

func main() {
	cli.Execute()
}
