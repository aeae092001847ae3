package main

import (
	"os"

	"github.com/soundprediction/graphmodel/cmd/graphmodel"
)

func main() {
	if err := graphmodel.Execute(); err != nil {
		os.Exit(1)
	}
}
