// synccli triggers and inspects catalog syncs over the admin HTTP API.
//
//	synccli trigger --type full --force
//	synccli trigger --type cards --set neo
//	synccli status
//	synccli history --limit 20
//	synccli cleanup --days 90
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	flag "github.com/spf13/pflag"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "cardbase server base URL")
	syncType := flag.String("type", "full", "sync type: sets, cards, full, translations")
	setCode := flag.String("set", "", "limit card sync to one set code")
	language := flag.String("language", "", "language code (required for translations)")
	force := flag.Bool("force", false, "rewrite records that already exist")
	limit := flag.Int("limit", 20, "history entries to show")
	days := flag.Int("days", 90, "delete history older than this many days")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: synccli [flags] trigger|status|history|cleanup")
		flag.PrintDefaults()
		os.Exit(2)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	base := *server + "/api/admin"

	var err error
	switch flag.Arg(0) {
	case "trigger":
		body, _ := json.Marshal(map[string]interface{}{
			"type":     *syncType,
			"force":    *force,
			"setCode":  *setCode,
			"language": *language,
		})
		err = call(client, "POST", base+"/sync", body)
	case "status":
		err = call(client, "GET", base+"/sync/status", nil)
	case "history":
		err = call(client, "GET", fmt.Sprintf("%s/sync/history?limit=%d", base, *limit), nil)
	case "cleanup":
		err = call(client, "DELETE", fmt.Sprintf("%s/sync/history?days=%d", base, *days), nil)
	default:
		err = fmt.Errorf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func call(client *http.Client, method, url string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// Pretty-print JSON answers; pass anything else through.
	var pretty bytes.Buffer
	if json.Indent(&pretty, payload, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(payload))
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server answered %s", resp.Status)
	}
	return nil
}
