// Package main runs repodash, a daemon that tracks the status of local git
// working copies and serves it over an HTTP JSON API.
package main

import "github.com/repodash/repodash/internal"

func main() {
	internal.Run()
}
