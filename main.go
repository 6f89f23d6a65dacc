// main is the entry point of the sonarscrape CLI.
package main

import (
	"github.com/qualitytrend/sonarscrape/cmd"
	"github.com/qualitytrend/sonarscrape/internal/contract"
)

func main() {
	if err := cmd.Execute(); err != nil {
		contract.LogFatal("sonarscrape failed", err)
	}
}
