// Package main provides the entrypoint for booking-webhook-app.
package main

import (
	"os"

	"github.com/meridianstays/booking-webhook-app/cmd"
)

func main() {
	if err := cmd.New().Execute(); err != nil {
		os.Exit(1)
	}
}
