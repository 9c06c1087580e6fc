// Command geotrie-lookup runs an interactive read-eval-print loop against a
// shard root, printing ranked results for each query.
//
// Usage:
//
//	go run ./cmd/geotrie-lookup -root https://example.com/shards
//
// Each line read from stdin is treated as a query ("Main St" or
// "Main St, Springfield"); results are printed one per line until EOF.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/andreiashu/geotrie"
)

func main() {
	root := flag.String("root", "", "shard root URL")
	prefixLen := flag.Int("prefix-len", 3, "shard prefix length")
	maxResults := flag.Int("max-results", 80, "maximum results per lookup")
	flag.Parse()

	if *root == "" {
		fmt.Fprintln(os.Stderr, "Error: -root is required")
		os.Exit(1)
	}

	sess, err := geotrie.New(
		geotrie.WithShardRoot(*root),
		geotrie.WithShardPrefixLen(*prefixLen),
		geotrie.WithMaxResults(*maxResults),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("geotrie-lookup ready; type a query and press Enter (Ctrl-D to exit)")

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		query := scanner.Text()
		if query == "" {
			continue
		}
		result := sess.Lookup(ctx, query)
		fmt.Println(strings.TrimSuffix(result.String(), "\n"))
	}
}
