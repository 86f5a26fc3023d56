// demo_server is a stand-in for the dashboard application when exercising
// gatewatch locally: it echoes request details and fakes the AI endpoints.
package main

import (
	"fmt"
	"log"
	"net/http"
	"time"
)

func main() {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "--- gatewatch demo upstream ---\n")
		fmt.Fprintf(w, "Time: %s\n", time.Now().Format(time.RFC1123))
		fmt.Fprintf(w, "Path: %s\n", r.URL.Path)
		fmt.Fprintf(w, "RemoteAddr: %s\n", r.RemoteAddr)
		fmt.Fprintf(w, "User-Agent: %s\n", r.UserAgent())
		log.Printf("Matched: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
	})

	mux.HandleFunc("/api/ai/chat", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond) // Simulate model latency
		fmt.Fprintf(w, `{"reply":"stub chat response"}`)
	})

	mux.HandleFunc("/api/ai/recommendations", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(250 * time.Millisecond)
		fmt.Fprintf(w, `{"recommendations":[]}`)
	})

	addr := "127.0.0.1:3000"
	log.Printf("Demo upstream starting on %s...", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
