// sxr-probe runs one query against an instance and dumps what came back,
// for checking that an instance has the json format enabled.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hyperifyio/sxr/internal/search"
)

func main() {
	base := os.Getenv("SEARXNG_URL")
	if base == "" {
		base = "http://localhost:8888"
	}
	q := search.Query{Text: "What is love?", PageSize: 5}
	if len(os.Args) > 1 {
		q.Text = os.Args[1]
	}
	client := &search.SearxNG{
		BaseURL:    base,
		UserAgent:  "sxr-probe/1.0",
		HTTPClient: search.NewHTTPClient(20*time.Second, true),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	page, err := client.Execute(ctx, q)
	if err != nil {
		fmt.Println("err:", err)
		os.Exit(1)
	}
	for i, r := range page.Results {
		fmt.Printf("%d. %s — %s %v\n", i+1, r.Title, r.URL, r.Engines)
	}
	for _, a := range page.Answers {
		fmt.Println("answer:", a)
	}
	for _, f := range page.Unresponsive {
		fmt.Printf("unresponsive: %s %s\n", f.Name, f.Error)
	}
	fmt.Printf("page=%d total=%d more=%v\n", page.Index, page.Total, page.HasMore)
}
