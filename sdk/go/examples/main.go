package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"UOMI-Agent/sdk/go/uomi"
)

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/invocations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(uomi.InvocationHeader, "demo-invocation")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"Wallet Balance for 0x0000000000000000000000000000000000000000:","time_taken":0,"tokens_per_second":0,"total_tokens_generated":0}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := uomi.NewClient(srv.URL, srv.Client())
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := client.Invoke(ctx, []uomi.Message{
		{Role: "user", Content: "What is the balance of 0x0000000000000000000000000000000000000000?"},
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("invocation %s (%s)\n", reply.InvocationID, reply.ContentType)
	if env, ok := reply.Envelope(); ok {
		fmt.Println(env.Response)
		return
	}
	fmt.Println(reply.Text())
}
