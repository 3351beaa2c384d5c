// Package main - test-runner
// Executable to run the headless board scenarios.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/MRamiBalles/Sugoroku/server/internal/platform/logger"
	"github.com/MRamiBalles/Sugoroku/server/test"
)

func main() {
	verbose := flag.Bool("v", false, "log engine activity")
	flag.Parse()

	fmt.Println("SUGOROKU - BOARD SCENARIO SUITE")
	fmt.Println(strings.Repeat("=", 60))

	log := logger.Discard()
	if *verbose {
		log = logger.NewLogger()
	}

	results := test.NewSuite(log).RunAll()
	passed := 0
	failed := 0

	for _, r := range results {
		if r.Passed {
			passed++
			fmt.Printf("PASS  %s\n", r.ScenarioName)
			continue
		}
		failed++
		fmt.Printf("FAIL  %s\n      input:    %s\n      expected: %s\n      actual:   %s\n", r.ScenarioName, r.Input, r.Expected, r.Actual)
		if r.Reason != "" {
			fmt.Printf("      reason:   %s\n", r.Reason)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("   Passed: %d\n", passed)
	fmt.Printf("   Failed: %d\n", failed)

	if failed > 0 {
		os.Exit(1)
	}
}
