package main

import (
	"encoding/json"
	"fmt"
)

// printJSON renders any command result as indented JSON on stdout.
func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("failed to marshal output: %v", err)
	}
	fmt.Println(string(data))
}
