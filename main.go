// Package main is the entry point of the widget-sidebar service
package main

import (
	"os"

	"github.com/amirphl/widget-sidebar/app/cli"
)

// @title Widget Sidebar API
// @version 1.0
// @description Areas and projects that group entities and structural components in a user-controlled order, with per-kind element tags.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
