// Package main is the entry point for the confcenter service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/confcenter/internal/confcenter"
)

func main() {
	confcenter.NewApp().Run()
}
