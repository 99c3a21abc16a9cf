package main

import (
	"encoding/json"
	"fmt"
)

// printJSON renders v as pretty-printed JSON, the minimal dual-format
// output this CLI owns directly; full report templating (CSV/YAML/TXT) is
// an external collaborator's concern.
func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
