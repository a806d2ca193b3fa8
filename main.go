// main.go - gpkg-tool entry point
package main

import "github.com/valpere/geopackage/cmd"

func main() {
	cmd.Execute()
}
