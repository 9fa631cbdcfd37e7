// Minimal example demonstrating a basic client with interceptors plus a
// derived client forked via Create.
package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/refactorjs/ofetch"
)

const httpbinJSON = "https://httpbin.org/json"

func main() {
	client := ofetch.New(
		ofetch.WithTimeout(10*time.Second),
		ofetch.WithHeader("User-Agent", "ofetch-example"),
		ofetch.WithMetrics(),
		ofetch.WithSimpleLogger(),
	)
	if !client.IsValid() {
		log.Fatalf("invalid client config: %v", client.ValidationError())
	}

	client.OnRequest(func(cfg *ofetch.RequestConfig) *ofetch.RequestConfig {
		cfg.Headers.Set("X-Example", "1")
		return cfg
	})
	client.OnResponse(func(v any) any {
		if s, ok := v.(string); ok {
			return strings.ToUpper(s)
		}
		return v
	})

	ctx := context.Background()
	body, err := client.Get(ctx, httpbinJSON)
	if err != nil {
		log.Fatalf("GET failed: %v", err)
	}
	fmt.Println("decoded body:", body)

	// Raw variant keeps status and headers alongside the decoded body.
	raw, err := client.GetRaw(ctx, httpbinJSON)
	if err != nil {
		log.Fatalf("raw GET failed: %v", err)
	}
	fmt.Println("status:", raw.Status)

	// A forked client inherits defaults but starts with fresh registries.
	api := client.Create(&ofetch.RequestConfig{BaseURL: "https://httpbin.org"})
	api.SetToken("example-token")
	if _, err := api.Get(ctx, "/headers"); err != nil {
		log.Fatalf("forked GET failed: %v", err)
	}
	fmt.Println("forked client ok")
}
