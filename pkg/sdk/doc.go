// Package mindseye embeds the Mind's Eye event search engine in a Go program.
//
// A Client holds one event collection in memory, optionally fed from a JSON
// file or a Redis list, and answers case-insensitive substring searches
// combined with source, kind and time range filters.
//
//	client, _ := mindseye.New(ctx, mindseye.WithFile("events.jsonl"))
//	defer client.Close()
//
//	events, _ := client.Search().
//	    Text("standup").
//	    Sources("gmail", "gcal").
//	    From("2024-01-01T00:00:00Z").
//	    Do(ctx)
//
//	daily, _ := client.Stats(ctx)
//
// Without a source, collections are supplied directly:
//
//	client, _ := mindseye.New(ctx)
//	_, _ = client.Load(ctx, []mindseye.Event{{ID: "1", Source: "slack", ...}})
package mindseye
