package main

import (
	"os"

	"github.com/geocoder89/changepassword/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
