package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"serfcraft.dev/internal/transport/observer"
)

// stateCmd prints the observer bootstrap of a running server.
func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(endpoint(*baseURL, "/observer/bootstrap"))
	if err != nil {
		fail(1, "request:", err)
	}
	printResponse(resp)
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	req, _ := http.NewRequest(http.MethodPost, endpoint(*baseURL, "/admin/v1/snapshot"), nil)
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fail(1, "request:", err)
	}
	printResponse(resp)
}

func endpoint(base, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + path
}

func printResponse(resp *http.Response) {
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

// tokenCmd mints a command token for the observer websocket.
func tokenCmd(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	secretEnv := fs.String("secret_env", "SC_TOKEN_SECRET", "env var holding the token secret")
	client := fs.String("client", "", "client name")
	players := fs.String("players", "", "comma separated player indices the client may command")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime (0: no expiry)")
	_ = fs.Parse(args)

	tok, err := issueToken(os.Getenv(*secretEnv), *client, *players, *ttl)
	if err != nil {
		fail(1, "token:", err)
	}
	fmt.Println(tok)
}

func issueToken(secret, client, players string, ttl time.Duration) (string, error) {
	if client == "" {
		return "", fmt.Errorf("missing -client")
	}
	var idx []int
	for _, p := range strings.Split(players, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return "", fmt.Errorf("bad player %q", p)
		}
		idx = append(idx, n)
	}
	if len(idx) == 0 {
		return "", fmt.Errorf("missing -players")
	}
	auth, err := observer.NewTokenAuth(secret, "serfcraft")
	if err != nil {
		return "", err
	}
	return auth.Issue(client, idx, ttl)
}
